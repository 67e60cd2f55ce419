package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal      = "tripstat.runs.total"
	metricRunDuration    = "tripstat.run.duration.seconds"
	metricRowsRead       = "tripstat.rows.read"
	metricRowsExcluded   = "tripstat.rows.excluded"
	metricStateRecovered = "tripstat.state.recovered"

	attrStatus = "status"
	attrStat   = "stat"
	attrKind   = "kind"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 10ms to 600s; a daily snapshot of a few
// million rows takes seconds.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the OTel instruments of an aggregation run. A nil
// *RunMetrics records nothing.
type RunMetrics struct {
	runsTotal      metric.Int64Counter
	runDuration    metric.Float64Histogram
	rowsRead       metric.Int64Counter
	rowsExcluded   metric.Int64Counter
	stateRecovered metric.Int64Counter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:      b.counter(metricRunsTotal, "Total number of aggregation runs", "{run}"),
		runDuration:    b.histogram(metricRunDuration, "Run duration in seconds", "s", durationBucketBoundaries...),
		rowsRead:       b.counter(metricRowsRead, "Snapshot rows read", "{row}"),
		rowsExcluded:   b.counter(metricRowsExcluded, "Rows excluded from a statistic as non-finite or null", "{row}"),
		stateRecovered: b.counter(metricStateRecovered, "Malformed prior state objects treated as absent", "{object}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records a finished run with its status and duration.
func (rm *RunMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRows records the snapshot size and the rows each statistic dropped.
func (rm *RunMetrics) RecordRows(ctx context.Context, read int, excluded map[string]int) {
	if rm == nil {
		return
	}

	rm.rowsRead.Add(ctx, int64(read))

	for stat, n := range excluded {
		rm.rowsExcluded.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrStat, stat)))
	}
}

// RecordRecovered records a prior state object of kind that was unusable.
func (rm *RunMetrics) RecordRecovered(ctx context.Context, kind string) {
	if rm == nil {
		return
	}

	rm.stateRecovered.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}
