// Package report summarizes the persisted trip aggregates without modifying
// them.
package report

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/alg/stats"
	"github.com/Sumatoshi-tech/tripstat/pkg/state"
)

// TrendAlpha is the smoothing factor of the per-day indicator trend.
const TrendAlpha = 0.3

// Report is the summary of the persisted state.
type Report struct {
	Price    *Price    `json:"avg_price_per_mile,omitempty" yaml:"avg_price_per_mile,omitempty"`
	Payments []Payment `json:"payment_distribution"         yaml:"payment_distribution"`
	Days     []Day     `json:"custom_indicator"             yaml:"custom_indicator"`
	Warnings []string  `json:"warnings,omitempty"           yaml:"warnings,omitempty"`
}

// Price is the running price-per-mile aggregate.
type Price struct {
	Object string  `json:"object" yaml:"object"`
	Mean   float64 `json:"avg"    yaml:"avg"`
	Count  uint64  `json:"count"  yaml:"count"`
}

// Payment is one payment type of the running distribution.
type Payment struct {
	Type  string  `json:"type"  yaml:"type"`
	Count uint64  `json:"count" yaml:"count"`
	Share float64 `json:"share" yaml:"share"`
}

// Day summarizes the custom indicator of one snapshot.
type Day struct {
	Date   string  `json:"date"   yaml:"date"`
	Rows   int     `json:"rows"   yaml:"rows"`
	Mean   float64 `json:"mean"   yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95"    yaml:"p95"`
	Trend  float64 `json:"trend"  yaml:"trend"`
}

// Build reads the state through r. Malformed price or distribution objects
// are reported as warnings; a malformed indicator log is an error.
func Build(ctx context.Context, r state.Reader) (Report, error) {
	var rep Report

	price, err := r.LoadPriceAggregate(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load price aggregate: %w", err)
	}

	switch {
	case price.Present():
		rep.Price = &Price{Object: price.Name, Mean: price.Value.Mean, Count: price.Value.Count}
	case price.Invalid != nil:
		rep.Warnings = append(rep.Warnings, price.Invalid.Error())
	}

	dist, err := r.LoadDistribution(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load distribution: %w", err)
	}

	if dist.Invalid != nil {
		rep.Warnings = append(rep.Warnings, dist.Invalid.Error())
	}

	if dist.Present() {
		rep.Payments = payments(*dist.Value)
	}

	series, err := r.LoadSeries(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load custom indicator log: %w", err)
	}

	rep.Days = days(series)

	return rep, nil
}

// payments orders the distribution by descending count, then type.
func payments(d aggregate.Distribution) []Payment {
	total := d.Total()
	out := make([]Payment, 0, len(d))

	for _, k := range d.Keys() {
		p := Payment{Type: k, Count: d[k]}
		if total > 0 {
			p.Share = float64(d[k]) / float64(total)
		}

		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b Payment) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		default:
			return 0
		}
	})

	return out
}

// days summarizes every snapshot of the log. The trend only follows days
// that kept at least one row; an empty day carries the previous trend.
func days(series []aggregate.Indicator) []Day {
	out := make([]Day, len(series))
	trend := stats.NewEMA(TrendAlpha)

	for i, in := range series {
		values := in.Values()
		mean, stddev := stats.MeanStdDev(values)
		out[i] = Day{
			Date:   in.Date,
			Rows:   len(values),
			Mean:   mean,
			StdDev: stddev,
			Median: stats.Median(values),
			P95:    stats.Percentile(values, stats.PercentileP95),
		}

		if len(values) > 0 {
			trend.Update(mean)
		}

		out[i].Trend = trend.Value()
	}

	return out
}
