package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrNoBrokers is returned when a Kafka notifier is built without brokers.
var ErrNoBrokers = errors.New("no kafka brokers configured")

// KafkaNotifier writes each event as a JSON message keyed by snapshot date.
type KafkaNotifier struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

// KafkaOption configures a KafkaNotifier.
type KafkaOption func(*KafkaNotifier)

// WithRetries sets the number of publish attempts.
func WithRetries(n int) KafkaOption {
	return func(k *KafkaNotifier) { k.retries = n }
}

// WithBackoff sets the delay before the first retry.
func WithBackoff(d time.Duration) KafkaOption {
	return func(k *KafkaNotifier) { k.backoff = d }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(k *KafkaNotifier) { k.logger = logger }
}

// NewKafkaNotifier creates a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string, opts ...KafkaOption) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	k := &KafkaNotifier{
		writer:  newWriter(brokers, topic),
		logger:  slog.Default(),
		retries: 1,
		backoff: DefaultBackoff,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k, nil
}

// newWriter builds a writer that makes a single attempt per call, leaving
// retries to Retry.
func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  1,
	}
}

// Topic returns the destination topic.
func (k *KafkaNotifier) Topic() string { return k.writer.Topic }

// Notify implements Notifier.
func (k *KafkaNotifier) Notify(ctx context.Context, ev Event) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}

	err = Retry(ctx, k.logger, k.retries, k.backoff, func(ctx context.Context) error {
		return k.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", k.Topic(), err)
	}

	return nil
}

// Close flushes and closes the writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// Message encodes ev as a Kafka message.
func Message(ev Event) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(ev.Date),
		Value: data,
		Time:  ev.Time,
	}, nil
}
