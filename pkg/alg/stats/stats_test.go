package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFinite(1.5))
	assert.True(t, IsFinite(0))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(1)))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestRatios_DropsNonFinite(t *testing.T) {
	t.Parallel()

	num := []float64{10, 20, 0, 9, math.NaN()}
	den := []float64{2, 0, 0, 3, 1}

	values, indices := Ratios(num, den)

	require.Len(t, values, 2)
	assert.InDelta(t, 5.0, values[0], 1e-12)
	assert.InDelta(t, 3.0, values[1], 1e-12)
	assert.Equal(t, []int{0, 3}, indices)
}

func TestRatios_Empty(t *testing.T) {
	t.Parallel()

	values, indices := Ratios(nil, nil)
	assert.Empty(t, values)
	assert.Empty(t, indices)
}

func TestRatios_NegativeDistanceKept(t *testing.T) {
	t.Parallel()

	values, _ := Ratios([]float64{10}, []float64{-2})
	require.Len(t, values, 1)
	assert.InDelta(t, -5.0, values[0], 1e-12)
}

func TestSum(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 6.5, Sum([]float64{1, 2, 3.5}), 1e-12)
	assert.Equal(t, uint64(7), Sum([]uint64{3, 4}))
	assert.Equal(t, 0, Sum([]int{}))
}

func TestWeightedMean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		meanA     float64
		countA    uint64
		meanB     float64
		countB    uint64
		wantMean  float64
		wantCount uint64
	}{
		{name: "both_empty", wantMean: 0, wantCount: 0},
		{name: "left_empty", meanB: 6, countB: 1, wantMean: 6, wantCount: 1},
		{name: "right_empty", meanA: 4, countA: 3, wantMean: 4, wantCount: 3},
		{name: "weighted", meanA: 6, countA: 1, meanB: 4, countB: 3, wantMean: 4.5, wantCount: 4},
		{name: "zero_mean_is_valid", meanA: 0, countA: 2, meanB: 3, countB: 1, wantMean: 1, wantCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mean, count := WeightedMean(tt.meanA, tt.countA, tt.meanB, tt.countB)
			assert.InDelta(t, tt.wantMean, mean, 1e-12)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestWeightedMean_MatchesUnionMean(t *testing.T) {
	t.Parallel()

	a := []float64{1.25, 3.5, 7.75}
	b := []float64{2, 4, 6, 8, 10}

	mean, count := WeightedMean(Mean(a), uint64(len(a)), Mean(b), uint64(len(b)))

	union := append(append([]float64{}, a...), b...)
	assert.InDelta(t, Mean(union), mean, 1e-12)
	assert.Equal(t, uint64(len(union)), count)
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    []float64
		p        float64
		expected float64
	}{
		{name: "empty_returns_zero", input: nil, p: PercentileMedian, expected: 0},
		{name: "single_element", input: []float64{7.0}, p: PercentileMedian, expected: 7.0},
		{name: "median_odd", input: []float64{3.0, 1.0, 2.0}, p: PercentileMedian, expected: 2.0},
		{name: "median_even", input: []float64{1.0, 2.0, 3.0, 4.0}, p: PercentileMedian, expected: 2.5},
		{name: "p95_of_100", input: makeSequence(100), p: PercentileP95, expected: 95.05},
		{name: "p0_is_min", input: []float64{5.0, 1.0, 9.0}, p: 0, expected: 1.0},
		{name: "p100_is_max", input: []float64{5.0, 1.0, 9.0}, p: 1.0, expected: 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Percentile(tt.input, tt.p)
			assert.InDelta(t, tt.expected, got, 0.1)
		})
	}
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	input := []float64{9, 1, 5}
	Percentile(input, PercentileMedian)

	assert.Equal(t, []float64{9, 1, 5}, input)
}

func TestMedian(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, Median([]float64{3.0, 1.0, 2.0}), 0.0001)
}

// makeSequence returns [1.0, 2.0, ..., n].
func makeSequence(n int) []float64 {
	result := make([]float64, n)

	for i := range result {
		result[i] = float64(i + 1)
	}

	return result
}

func TestMeanStdDev(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      []float64
		wantMean   float64
		wantStdDev float64
	}{
		{name: "empty_returns_zeros", input: nil},
		{name: "single_element_zero_stddev", input: []float64{5.0}, wantMean: 5.0},
		{name: "known_population_stddev", input: []float64{2, 4, 4, 4, 5, 5, 7, 9}, wantMean: 5.0, wantStdDev: 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mean, stddev := MeanStdDev(tt.input)
			assert.InDelta(t, tt.wantMean, mean, 0.0001)
			assert.InDelta(t, tt.wantStdDev, stddev, 0.0001)
		})
	}
}

func TestMean(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, Mean(nil), 0.0001)
	assert.InDelta(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}), 0.0001)
	assert.InDelta(t, -3.0, Mean([]float64{-2, -4}), 0.0001)
}
