// Package state persists the running trip aggregates between runs.
//
// There is at most one live object per statistic kind. The price and
// distribution objects are superseded on every run; the custom indicator
// object is an append-only log keyed by snapshot date that is republished
// under the newest date.
package state

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/persist"
)

// Kind identifies a persisted statistic.
type Kind string

// Persisted statistic kinds, named after their file suffix.
const (
	KindPrice        Kind = "avg"
	KindDistribution Kind = "distrib"
	KindSeries       Kind = "custom"
)

// Kinds lists every persisted kind in commit order.
var Kinds = []Kind{KindPrice, KindDistribution, KindSeries}

// DefaultPrefix names the dataset in persisted object names.
const DefaultPrefix = "yellow_taxi"

// ObjectName returns the canonical name of the object of kind for date,
// e.g. "20240101_yellow_taxi_avg.json".
func ObjectName(date, prefix string, kind Kind) string {
	return objectName(date, prefix, kind, persist.NewJSONCodec())
}

// objectName names the object of kind with the file extension of codec.
func objectName(date, prefix string, kind Kind, codec persist.Codec) string {
	return date + objectSuffix(prefix, kind, codec)
}

// objectSuffix is the part of every object name of kind after the date.
func objectSuffix(prefix string, kind Kind, codec persist.Codec) string {
	return fmt.Sprintf("_%s_%s%s", prefix, kind, codec.Extension())
}

// Loaded is a prior aggregate together with the object that held it.
type Loaded[T any] struct {
	// Value is nil when no usable prior exists (cold start).
	Value *T
	// Invalid is set when an object was found but could not be decoded.
	Invalid error
	// Name is the backing object; empty when none was found.
	Name string
}

// Present reports whether a usable prior aggregate was loaded.
func (l Loaded[T]) Present() bool { return l.Value != nil }


// SeriesHandle identifies the prior custom indicator log. The log content
// is not decoded for merging; Dates is read only to refuse reapplying a
// snapshot.
type SeriesHandle struct {
	Invalid error
	Name    string
	Dates   []string
}

// Exists reports whether a prior log was found.
func (h SeriesHandle) Exists() bool { return h.Name != "" }

// Has reports whether the log already records date.
func (h SeriesHandle) Has(date string) bool { return slices.Contains(h.Dates, date) }

// Update is the new state produced by one run.
type Update struct {
	Distribution aggregate.Distribution
	Date         string
	Indicator    aggregate.Indicator
	Price        aggregate.PriceRatio
	// Supersedes holds the prior price and distribution object names; they
	// are retired once the new objects are published. The prior series log
	// is taken from Series.
	Supersedes map[Kind]string
	// Series is the prior log the indicator entry is appended to.
	Series SeriesHandle
}

// Published describes the outcome of a commit.
type Published struct {
	// Names holds the object written per kind. The price kind is absent
	// when the aggregate was empty.
	Names map[Kind]string
	// Retired lists the superseded objects that were removed.
	Retired []string
	// Archived lists the archive copies of retired objects.
	Archived []string
}

// Repository loads prior aggregates and publishes new ones.
type Repository interface {
	// LoadPriceAggregate returns the prior price-per-mile aggregate.
	LoadPriceAggregate(ctx context.Context) (Loaded[aggregate.PriceRatio], error)
	// LoadDistribution returns the prior payment distribution.
	LoadDistribution(ctx context.Context) (Loaded[aggregate.Distribution], error)
	// LoadSeriesHandle returns the identity of the prior custom indicator log.
	LoadSeriesHandle(ctx context.Context) (SeriesHandle, error)
	// Commit publishes u and retires the superseded objects.
	Commit(ctx context.Context, u Update) (Published, error)
}

// Reader exposes the persisted state for reporting.
type Reader interface {
	LoadPriceAggregate(ctx context.Context) (Loaded[aggregate.PriceRatio], error)
	LoadDistribution(ctx context.Context) (Loaded[aggregate.Distribution], error)
	LoadSeries(ctx context.Context) ([]aggregate.Indicator, error)
}

// priceRecord is the persisted shape of a price aggregate.
type priceRecord struct {
	Avg   float64 `json:"avg"`
	Count uint64  `json:"count"`
}

func toPriceRecord(p aggregate.PriceRatio) priceRecord {
	return priceRecord{Avg: p.Mean, Count: p.Count}
}

func (r priceRecord) toAggregate() aggregate.PriceRatio {
	return aggregate.PriceRatio{Mean: r.Avg, Count: r.Count}
}
