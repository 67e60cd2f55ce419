// Package notify publishes an event for every committed aggregation run so
// downstream consumers can pick up the new state without polling the state
// directory.
package notify

import (
	"context"
	"time"
)

// Event describes a committed run.
type Event struct {
	Time            time.Time         `json:"time"`
	Distribution    map[string]uint64 `json:"payment_distribution"`
	Published       map[string]string `json:"published"`
	RunID           string            `json:"run_id"`
	Date            string            `json:"date"`
	Retired         []string          `json:"retired,omitempty"`
	Recovered       []string          `json:"recovered,omitempty"`
	AvgPricePerMile float64           `json:"avg_price_per_mile"`
	Count           uint64            `json:"count"`
	Rows            int               `json:"rows"`
	IndicatorRows   int               `json:"indicator_rows"`
}

// Notifier publishes run events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }
