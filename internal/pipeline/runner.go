// Package pipeline runs one incremental aggregation: read the snapshot of a
// date, compute its statistics, merge them into the persisted state and
// publish the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tripstat/internal/notify"
	"github.com/Sumatoshi-tech/tripstat/internal/observability"
	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/snapshot"
	"github.com/Sumatoshi-tech/tripstat/pkg/state"
	"github.com/Sumatoshi-tech/tripstat/pkg/trip"
	"github.com/Sumatoshi-tech/tripstat/pkg/tripstats"
)

// tracerName is the default OTel tracer name for the pipeline package.
const tracerName = "tripstat"

// Span names.
const (
	spanRun     = "tripstat.run"
	spanOpen    = "tripstat.snapshot.open"
	spanCompute = "tripstat.compute"
	spanLoad    = "tripstat.state.load"
	spanCommit  = "tripstat.state.commit"
	spanNotify  = "tripstat.notify"
)

// Runner aggregates one snapshot into the persisted state.
type Runner struct {
	Source snapshot.Source
	Repo   state.Repository

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Tracer is the OTel tracer for run spans.
	// When nil, falls back to otel.Tracer("tripstat").
	Tracer trace.Tracer

	// Metrics may be nil.
	Metrics *observability.RunMetrics

	// Notifier, when set, receives an event after every commit. A failed
	// publish is logged and does not fail the run.
	Notifier notify.Notifier
}

// Summary describes a finished run.
type Summary struct {
	// Excluded counts the rows each statistic dropped.
	Excluded map[string]int

	// Distribution is the merged payment distribution.
	Distribution aggregate.Distribution

	// Published names the written and retired state objects.
	Published state.Published

	RunID string
	Date  string

	// Recovered lists prior objects that were unusable and treated as absent.
	Recovered []string

	// Current is the price aggregate of this snapshot alone.
	Current aggregate.PriceRatio

	// Price is the merged running price aggregate.
	Price aggregate.PriceRatio

	Rows           int
	IndicatorRows  int
	Duration       time.Duration
	ColdStartPrice bool
	Notified       bool
}

// prior is the state loaded before merging.
type prior struct {
	price  state.Loaded[aggregate.PriceRatio]
	dist   state.Loaded[aggregate.Distribution]
	series state.SeriesHandle
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}

	return otel.Tracer(tracerName)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.Default()
}

// Run aggregates the snapshot of date. Nothing is written unless every step
// before the commit succeeds.
func (r *Runner) Run(ctx context.Context, date snapshot.Date) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := r.tracer().Start(ctx, spanRun, trace.WithAttributes(
		attribute.String("tripstat.run_id", runID),
		attribute.String("tripstat.date", date.String()),
	))
	defer span.End()

	logger := r.logger().With("run_id", runID, "date", date.String())

	summary, err := r.run(ctx, logger, date)
	summary.RunID = runID
	summary.Date = date.String()
	summary.Duration = time.Since(start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	r.Metrics.RecordRun(ctx, status, summary.Duration)

	if err != nil {
		return summary, err
	}

	summary.Notified = r.notify(ctx, logger, summary)

	logger.InfoContext(ctx, "snapshot aggregated",
		"rows", summary.Rows,
		"avg_price_per_mile", summary.Price.Mean,
		"count", summary.Price.Count,
		"payment_types", len(summary.Distribution),
		"indicator_rows", summary.IndicatorRows,
		"retired", summary.Published.Retired,
		"duration", summary.Duration,
	)

	return summary, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, date snapshot.Date) (Summary, error) {
	var summary Summary

	batch, err := r.open(ctx, date)
	if err != nil {
		return summary, err
	}

	res, err := r.compute(ctx, batch, date)
	if err != nil {
		return summary, err
	}

	summary.Rows = res.Rows
	summary.Excluded = res.Excluded()
	summary.Current = res.Price
	summary.IndicatorRows = len(res.Indicator.Points)

	r.Metrics.RecordRows(ctx, res.Rows, summary.Excluded)

	logger.DebugContext(ctx, "snapshot computed",
		"rows", res.Rows,
		"excluded", summary.Excluded,
		"avg_price_per_mile", res.Price.Mean,
		"count", res.Price.Count,
	)

	p, err := r.load(ctx)
	if err != nil {
		return summary, err
	}

	summary.Recovered = r.recovered(ctx, p)

	if p.series.Has(date.String()) {
		return summary, fmt.Errorf("%w: %s is recorded in %s", state.ErrAlreadyApplied, date, p.series.Name)
	}

	var priorDist aggregate.Distribution
	if p.dist.Present() {
		priorDist = *p.dist.Value
	}

	summary.ColdStartPrice = !p.price.Present()
	summary.Price = aggregate.MergePrice(p.price.Value, res.Price)
	summary.Distribution = aggregate.MergeDistribution(priorDist, res.Distribution)

	update := state.Update{
		Date:         date.String(),
		Price:        summary.Price,
		Distribution: summary.Distribution,
		Indicator:    res.Indicator,
		Series:       p.series,
		Supersedes: map[state.Kind]string{
			state.KindPrice:        p.price.Name,
			state.KindDistribution: p.dist.Name,
		},
	}

	summary.Published, err = r.commit(ctx, update)
	if err != nil {
		return summary, err
	}

	return summary, nil
}

func (r *Runner) open(ctx context.Context, date snapshot.Date) (*trip.Batch, error) {
	ctx, span := r.tracer().Start(ctx, spanOpen)
	defer span.End()

	batch, err := r.Source.Open(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	span.SetAttributes(attribute.Int("tripstat.rows", batch.Len()))

	return batch, nil
}

func (r *Runner) compute(ctx context.Context, batch *trip.Batch, date snapshot.Date) (tripstats.Result, error) {
	_, span := r.tracer().Start(ctx, spanCompute)
	defer span.End()

	return tripstats.ComputeAll(batch, date.String())
}

func (r *Runner) load(ctx context.Context) (prior, error) {
	ctx, span := r.tracer().Start(ctx, spanLoad)
	defer span.End()

	var (
		p   prior
		err error
	)

	p.price, err = r.Repo.LoadPriceAggregate(ctx)
	if err != nil {
		return prior{}, fmt.Errorf("load price aggregate: %w", err)
	}

	p.dist, err = r.Repo.LoadDistribution(ctx)
	if err != nil {
		return prior{}, fmt.Errorf("load distribution: %w", err)
	}

	p.series, err = r.Repo.LoadSeriesHandle(ctx)
	if err != nil {
		return prior{}, fmt.Errorf("load custom indicator log: %w", err)
	}

	return p, nil
}

// recovered reports the prior objects that were found but unusable.
func (r *Runner) recovered(ctx context.Context, p prior) []string {
	var names []string

	if p.price.Invalid != nil {
		names = append(names, p.price.Name)
		r.Metrics.RecordRecovered(ctx, string(state.KindPrice))
	}

	if p.dist.Invalid != nil {
		names = append(names, p.dist.Name)
		r.Metrics.RecordRecovered(ctx, string(state.KindDistribution))
	}

	if p.series.Invalid != nil {
		names = append(names, p.series.Name)
		r.Metrics.RecordRecovered(ctx, string(state.KindSeries))
	}

	return names
}

func (r *Runner) commit(ctx context.Context, u state.Update) (state.Published, error) {
	ctx, span := r.tracer().Start(ctx, spanCommit)
	defer span.End()

	pub, err := r.Repo.Commit(ctx, u)
	if err != nil {
		return pub, fmt.Errorf("commit: %w", err)
	}

	return pub, nil
}

// notify publishes the run event and reports whether it was delivered.
func (r *Runner) notify(ctx context.Context, logger *slog.Logger, s Summary) bool {
	if r.Notifier == nil {
		return false
	}

	ctx, span := r.tracer().Start(ctx, spanNotify)
	defer span.End()

	err := r.Notifier.Notify(ctx, Event(s))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "run event not published", "error", err)

		return false
	}

	return true
}

// Event builds the notification for a committed run.
func Event(s Summary) notify.Event {
	published := make(map[string]string, len(s.Published.Names))
	for kind, name := range s.Published.Names {
		published[string(kind)] = name
	}

	return notify.Event{
		Time:            time.Now().UTC(),
		Distribution:    s.Distribution,
		Published:       published,
		RunID:           s.RunID,
		Date:            s.Date,
		Retired:         s.Published.Retired,
		Recovered:       s.Recovered,
		AvgPricePerMile: s.Price.Mean,
		Count:           s.Price.Count,
		Rows:            s.Rows,
		IndicatorRows:   s.IndicatorRows,
	}
}
