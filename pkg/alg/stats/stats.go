// Package stats provides the numeric primitives behind the trip aggregates.
// Standard deviation is the population form (÷n).
package stats

import (
	"math"
	"slices"
)

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Ratios divides num[i] by den[i] and keeps only finite quotients.
// The returned indices are the positions of the kept quotients in the input.
// Slices of different length are truncated to the shorter one.
func Ratios(num, den []float64) (values []float64, indices []int) {
	n := min(len(num), len(den))

	values = make([]float64, 0, n)
	indices = make([]int, 0, n)

	for i := range n {
		q := num[i] / den[i]
		if !IsFinite(q) {
			continue
		}

		values = append(values, q)
		indices = append(indices, i)
	}

	return values, indices
}

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return Sum(values) / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(len(values)))
}

// WeightedMean combines two means by their observation counts.
// Returns (0, 0) when both counts are zero.
func WeightedMean(meanA float64, countA uint64, meanB float64, countB uint64) (float64, uint64) {
	total := countA + countB
	if total == 0 {
		return 0, 0
	}

	switch {
	case countA == 0:
		return meanB, countB
	case countB == 0:
		return meanA, countA
	}

	sum := meanA*float64(countA) + meanB*float64(countB)

	return sum / float64(total), total
}

// Well-known percentile thresholds.
const (
	PercentileMedian = 0.5
	PercentileP95    = 0.95
)

// Percentile returns the p-th percentile of values using linear interpolation.
// p must be in [0, 1]. The input slice is not modified.
// Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	count := len(values)
	if count == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Median returns the 50th percentile of values.
func Median(values []float64) float64 {
	return Percentile(values, PercentileMedian)
}

// Sum returns the sum of values.
func Sum[T ~int | ~int64 | ~uint64 | ~float64](values []T) T {
	var result T

	for _, v := range values {
		result += v
	}

	return result
}
