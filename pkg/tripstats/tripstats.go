// Package tripstats computes the per-snapshot trip statistics.
//
// Each function is pure: it reads a batch and returns a fresh aggregate.
// Records whose ratio is not finite (zero distance, null inputs) are dropped,
// never treated as zero.
package tripstats

import (
	"fmt"

	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/alg/stats"
	"github.com/Sumatoshi-tech/tripstat/pkg/trip"
)

// Operation names reported in schema errors.
const (
	OpAvgPricePerMile     = "avg price per mile"
	OpPaymentDistribution = "payment distribution"
	OpCustomIndicator     = "custom indicator"
)

// AvgPricePerMile returns the mean of total_amount / trip_distance over
// records with a finite ratio, and how many such records there were.
// A batch with no finite ratio yields the empty aggregate.
func AvgPricePerMile(b *trip.Batch) (aggregate.PriceRatio, error) {
	err := b.Require(OpAvgPricePerMile, trip.ColumnTotalAmount, trip.ColumnTripDistance)
	if err != nil {
		return aggregate.PriceRatio{}, err
	}

	ratios, _, err := columnRatios(b, trip.ColumnTotalAmount)
	if err != nil {
		return aggregate.PriceRatio{}, err
	}

	if len(ratios) == 0 {
		return aggregate.PriceRatio{}, nil
	}

	return aggregate.PriceRatio{
		Mean:  stats.Mean(ratios),
		Count: uint64(len(ratios)),
	}, nil
}

// PaymentDistribution counts records per canonical payment_type label.
// Records with a null payment type are not counted. The batch must carry at
// least one column besides payment_type.
func PaymentDistribution(b *trip.Batch) (aggregate.Distribution, error) {
	err := b.Require(OpPaymentDistribution, trip.ColumnPaymentType)
	if err != nil {
		return nil, err
	}

	if len(b.Columns()) < 2 {
		return nil, &trip.SchemaError{Op: OpPaymentDistribution, Missing: []string{"<counting column>"}}
	}

	col, _ := b.Column(trip.ColumnPaymentType)
	dist := make(aggregate.Distribution)

	for _, v := range col {
		label, ok := v.Label()
		if !ok {
			continue
		}

		dist[label]++
	}

	return dist, nil
}

// CustomIndicator returns (tip_amount + extra) / trip_distance for every
// record with a finite result, keyed by its row position.
func CustomIndicator(b *trip.Batch, date string) (aggregate.Indicator, error) {
	err := b.Require(OpCustomIndicator, trip.ColumnTipAmount, trip.ColumnExtra, trip.ColumnTripDistance)
	if err != nil {
		return aggregate.Indicator{}, err
	}

	tips, err := b.Float64s(trip.ColumnTipAmount)
	if err != nil {
		return aggregate.Indicator{}, err
	}

	extras, err := b.Float64s(trip.ColumnExtra)
	if err != nil {
		return aggregate.Indicator{}, err
	}

	numerator := make([]float64, len(tips))
	for i := range tips {
		numerator[i] = tips[i] + extras[i]
	}

	distance, err := b.Float64s(trip.ColumnTripDistance)
	if err != nil {
		return aggregate.Indicator{}, err
	}

	values, rows := stats.Ratios(numerator, distance)

	points := make([]aggregate.Point, len(values))
	for i := range values {
		points[i] = aggregate.Point{Row: rows[i], Value: values[i]}
	}

	return aggregate.Indicator{Date: date, Points: points}, nil
}

func columnRatios(b *trip.Batch, numerator string) ([]float64, []int, error) {
	num, err := b.Float64s(numerator)
	if err != nil {
		return nil, nil, err
	}

	den, err := b.Float64s(trip.ColumnTripDistance)
	if err != nil {
		return nil, nil, err
	}

	values, rows := stats.Ratios(num, den)

	return values, rows, nil
}

// Result holds the three statistics of one snapshot.
type Result struct {
	Price        aggregate.PriceRatio
	Distribution aggregate.Distribution
	Indicator    aggregate.Indicator
	Rows         int
}

// ComputeAll runs every statistic over b. It fails as a whole when any
// statistic fails, so callers never persist a partial result.
func ComputeAll(b *trip.Batch, date string) (Result, error) {
	price, err := AvgPricePerMile(b)
	if err != nil {
		return Result{}, fmt.Errorf("compute: %w", err)
	}

	dist, err := PaymentDistribution(b)
	if err != nil {
		return Result{}, fmt.Errorf("compute: %w", err)
	}

	indicator, err := CustomIndicator(b, date)
	if err != nil {
		return Result{}, fmt.Errorf("compute: %w", err)
	}

	return Result{
		Price:        price,
		Distribution: dist,
		Indicator:    indicator,
		Rows:         b.Len(),
	}, nil
}

// Statistic names used as metric and log labels.
const (
	StatAvgPricePerMile     = "avg_price_per_mile"
	StatPaymentDistribution = "payment_distribution"
	StatCustomIndicator     = "custom_indicator"
)

// Excluded returns how many rows each statistic left out.
func (r Result) Excluded() map[string]int {
	return map[string]int{
		StatAvgPricePerMile:     r.Rows - int(r.Price.Count),
		StatPaymentDistribution: r.Rows - int(r.Distribution.Total()),
		StatCustomIndicator:     r.Rows - len(r.Indicator.Points),
	}
}
