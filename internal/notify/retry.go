package notify

import (
	"context"
	"log/slog"
	"time"
)

// DefaultBackoff is the delay before the first retry. It doubles after every
// failed attempt.
const DefaultBackoff = 500 * time.Millisecond

// Retry calls send up to attempts times and returns the last error. It stops
// early when ctx is done.
func Retry(ctx context.Context, logger *slog.Logger, attempts int, backoff time.Duration, send func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for attempt := 1; ; attempt++ {
		err = send(ctx)
		if err == nil {
			return nil
		}

		if attempt == attempts {
			return err
		}

		logger.WarnContext(ctx, "publish failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		timer := time.NewTimer(backoff)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}
}
