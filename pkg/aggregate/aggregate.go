// Package aggregate defines the durable trip statistics and how a run's
// partial result is folded into the previously persisted one.
//
// All values are immutable: merges return new values and never modify their
// inputs.
package aggregate

import (
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/tripstat/pkg/alg/stats"
)

// PriceRatio is a running mean of price per mile weighted by record count.
// The zero value is the empty aggregate; its mean is undefined.
type PriceRatio struct {
	Mean  float64
	Count uint64
}

// Empty reports whether the aggregate carries no observations.
func (p PriceRatio) Empty() bool {
	return p.Count == 0
}

// MergePrice folds curr into prev. A nil or empty prev yields curr; an empty
// curr contributes nothing.
func MergePrice(prev *PriceRatio, curr PriceRatio) PriceRatio {
	if prev == nil || prev.Empty() {
		return curr
	}

	mean, count := stats.WeightedMean(curr.Mean, curr.Count, prev.Mean, prev.Count)

	return PriceRatio{Mean: mean, Count: count}
}

// Distribution counts records per canonical payment type label.
type Distribution map[string]uint64

// Total returns the number of counted records.
func (d Distribution) Total() uint64 {
	return stats.Sum(slices.Collect(maps.Values(d)))
}

// Keys returns the labels in ascending order.
func (d Distribution) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// Clone returns a copy of d. The copy of a nil distribution is empty, not nil.
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	maps.Copy(out, d)

	return out
}

// MergeDistribution returns the key union of prev and curr with summed
// counts. Either side may be nil.
func MergeDistribution(prev, curr Distribution) Distribution {
	out := prev.Clone()

	for k, v := range curr {
		out[k] += v
	}

	return out
}

// Point is one indicator value at its original row position in the snapshot.
type Point struct {
	Row   int
	Value float64
}

// Indicator is the per-record custom indicator of one snapshot.
// It is recorded whole under its date and never merged.
type Indicator struct {
	Date   string
	Points []Point
}

// Values returns the indicator values in row order.
func (in Indicator) Values() []float64 {
	out := make([]float64, len(in.Points))
	for i, p := range in.Points {
		out[i] = p.Value
	}

	return out
}
