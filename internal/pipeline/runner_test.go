package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/tripstat/internal/notify"
	"github.com/Sumatoshi-tech/tripstat/internal/observability"
	"github.com/Sumatoshi-tech/tripstat/internal/pipeline"
	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
	"github.com/Sumatoshi-tech/tripstat/pkg/snapshot"
	"github.com/Sumatoshi-tech/tripstat/pkg/state"
	"github.com/Sumatoshi-tech/tripstat/pkg/trip"
)

var errDisk = errors.New("disk on fire")

func mustDate(t *testing.T, s string) snapshot.Date {
	t.Helper()

	d, err := snapshot.ParseDate(s)
	require.NoError(t, err)

	return d
}

func batchSource(t *testing.T, build func(b *trip.Builder) *trip.Builder) snapshot.Source {
	t.Helper()

	batch, err := build(trip.NewBuilder()).Build()
	require.NoError(t, err)

	return snapshot.SourceFunc(func(context.Context, snapshot.Date) (*trip.Batch, error) {
		return batch, nil
	})
}

// singleTrip yields one record with a price per mile of 6.0 and an indicator of 1.0.
func singleTrip(b *trip.Builder) *trip.Builder {
	return b.
		Floats(trip.ColumnTotalAmount, 12).
		Floats(trip.ColumnTripDistance, 2).
		Floats(trip.ColumnTipAmount, 1.5).
		Floats(trip.ColumnExtra, 0.5).
		Ints(trip.ColumnPaymentType, 1)
}

func newRunner(src snapshot.Source, repo state.Repository) *pipeline.Runner {
	return &pipeline.Runner{
		Source: src,
		Repo:   repo,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
}

func TestRun_ColdStart(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	src := batchSource(t, func(b *trip.Builder) *trip.Builder {
		return b.
			Floats(trip.ColumnTotalAmount, 10, 20).
			Floats(trip.ColumnTripDistance, 2, 0).
			Floats(trip.ColumnTipAmount, 1, 1).
			Floats(trip.ColumnExtra, 0.5, 0).
			Ints(trip.ColumnPaymentType, 1, 2)
	})

	summary, err := newRunner(src, repo).Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "20240101", summary.Date)
	assert.Equal(t, 2, summary.Rows)
	assert.True(t, summary.ColdStartPrice)
	assert.Equal(t, aggregate.PriceRatio{Mean: 5, Count: 1}, summary.Price)
	assert.Equal(t, aggregate.Distribution{"1": 1, "2": 1}, summary.Distribution)
	assert.Equal(t, 1, summary.IndicatorRows)
	assert.Equal(t, 1, summary.Excluded["avg_price_per_mile"])
	assert.Empty(t, summary.Published.Retired)

	require.Len(t, repo.Series, 1)
	assert.Equal(t, []aggregate.Point{{Row: 0, Value: 0.75}}, repo.Series[0].Points)
}

func TestRun_MergesPriorState(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	repo.Price = state.Loaded[aggregate.PriceRatio]{
		Value: &aggregate.PriceRatio{Mean: 4, Count: 3},
		Name:  "20231231_yellow_taxi_avg.json",
	}
	repo.Distribution = state.Loaded[aggregate.Distribution]{
		Value: &aggregate.Distribution{"1": 5},
		Name:  "20231231_yellow_taxi_distrib.json",
	}
	repo.SeriesName = "20231231_yellow_taxi_custom.json"
	repo.Series = []aggregate.Indicator{{Date: "20231231"}}

	summary, err := newRunner(batchSource(t, singleTrip), repo).Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)

	assert.False(t, summary.ColdStartPrice)
	assert.InDelta(t, 4.5, summary.Price.Mean, 1e-12)
	assert.Equal(t, uint64(4), summary.Price.Count)
	assert.Equal(t, aggregate.Distribution{"1": 6}, summary.Distribution)
	assert.ElementsMatch(t, []string{
		"20231231_yellow_taxi_avg.json",
		"20231231_yellow_taxi_distrib.json",
		"20231231_yellow_taxi_custom.json",
	}, summary.Published.Retired)
	assert.Len(t, repo.Series, 2)
}

func TestRun_RefusesAppliedDate(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	runner := newRunner(batchSource(t, singleTrip), repo)
	date := mustDate(t, "20240101")

	_, err := runner.Run(context.Background(), date)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), date)
	require.ErrorIs(t, err, state.ErrAlreadyApplied)

	assert.Equal(t, 1, repo.Commits)
	assert.Equal(t, uint64(1), repo.Price.Value.Count)
}

func TestRun_SeriesIsAdditive(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	runner := newRunner(batchSource(t, singleTrip), repo)

	for _, d := range []string{"20240101", "20240102", "20240103"} {
		_, err := runner.Run(context.Background(), mustDate(t, d))
		require.NoError(t, err)
	}

	require.Len(t, repo.Series, 3)
	assert.Equal(t, "20240103", repo.Series[2].Date)
	assert.Equal(t, "20240103_yellow_taxi_custom.json", repo.SeriesName)
	assert.Equal(t, uint64(3), repo.Price.Value.Count)
}

func TestRun_SourceUnavailable(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	src := &snapshot.ParquetSource{Dir: t.TempDir()}

	_, err := newRunner(src, repo).Run(context.Background(), mustDate(t, "20240101"))

	require.ErrorIs(t, err, snapshot.ErrSourceUnavailable)
	assert.Zero(t, repo.Commits)
}

func TestRun_SchemaErrorWritesNothing(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	src := batchSource(t, func(b *trip.Builder) *trip.Builder {
		return b.
			Floats(trip.ColumnTotalAmount, 12).
			Floats(trip.ColumnTripDistance, 2).
			Ints(trip.ColumnPaymentType, 1)
	})

	_, err := newRunner(src, repo).Run(context.Background(), mustDate(t, "20240101"))

	require.ErrorIs(t, err, trip.ErrSchema)
	assert.Zero(t, repo.Commits)
}

type ambiguousRepo struct {
	*state.MemoryRepository
}

func (ambiguousRepo) LoadDistribution(context.Context) (state.Loaded[aggregate.Distribution], error) {
	return state.Loaded[aggregate.Distribution]{}, state.ErrAmbiguousState
}

func TestRun_AmbiguousStateWritesNothing(t *testing.T) {
	t.Parallel()

	repo := ambiguousRepo{state.NewMemoryRepository()}

	_, err := newRunner(batchSource(t, singleTrip), repo).Run(context.Background(), mustDate(t, "20240101"))

	require.ErrorIs(t, err, state.ErrAmbiguousState)
	assert.Zero(t, repo.Commits)
}

type failingCommitRepo struct {
	*state.MemoryRepository
}

func (failingCommitRepo) Commit(context.Context, state.Update) (state.Published, error) {
	return state.Published{}, errDisk
}

func TestRun_CommitFailure(t *testing.T) {
	t.Parallel()

	repo := failingCommitRepo{state.NewMemoryRepository()}

	_, err := newRunner(batchSource(t, singleTrip), repo).Run(context.Background(), mustDate(t, "20240101"))
	require.ErrorIs(t, err, errDisk)
}

func TestRun_MalformedPriorTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewRunMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	repo := state.NewMemoryRepository()
	repo.Price = state.Loaded[aggregate.PriceRatio]{
		Invalid: &state.StateParseError{Kind: state.KindPrice, Name: "20231231_yellow_taxi_avg.json", Err: errDisk},
		Name:    "20231231_yellow_taxi_avg.json",
	}

	runner := newRunner(batchSource(t, singleTrip), repo)
	runner.Metrics = metrics

	summary, err := runner.Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)

	assert.Equal(t, aggregate.PriceRatio{Mean: 6, Count: 1}, summary.Price)
	assert.Equal(t, []string{"20231231_yellow_taxi_avg.json"}, summary.Recovered)
	assert.Contains(t, summary.Published.Retired, "20231231_yellow_taxi_avg.json")

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}

	assert.True(t, names["tripstat.state.recovered"])
	assert.True(t, names["tripstat.runs.total"])
	assert.True(t, names["tripstat.rows.read"])
}

func TestRun_RecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	runner := newRunner(batchSource(t, singleTrip), state.NewMemoryRepository())
	runner.Tracer = tp.Tracer("test")

	_, err := runner.Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}

	assert.ElementsMatch(t, []string{
		"tripstat.snapshot.open",
		"tripstat.compute",
		"tripstat.state.load",
		"tripstat.state.commit",
		"tripstat.run",
	}, names)
}

func TestRun_FileRepositoryEndToEnd(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	stateDir := t.TempDir()

	days := map[string]string{
		"2024-01-01": "total_amount,trip_distance,tip_amount,extra,payment_type\n10,2,1,0,1\n20,0,1,1,2\n",
		"2024-01-02": "total_amount,trip_distance,tip_amount,extra,payment_type\n6,1,0,0.5,1\n",
	}
	for day, content := range days {
		path := filepath.Join(srcDir, "yellow_tripdata_"+day+".csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	runner := newRunner(&snapshot.CSVSource{Dir: srcDir}, state.NewFileRepository(stateDir))

	_, err := runner.Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), mustDate(t, "20240102"))
	require.NoError(t, err)

	assert.InDelta(t, 5.5, summary.Price.Mean, 1e-12)
	assert.Equal(t, uint64(2), summary.Price.Count)
	assert.Equal(t, aggregate.Distribution{"1": 2, "2": 1}, summary.Distribution)

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.ElementsMatch(t, []string{
		"20240102_yellow_taxi_avg.json",
		"20240102_yellow_taxi_distrib.json",
		"20240102_yellow_taxi_custom.json",
	}, names)

	series, err := state.NewFileRepository(stateDir).LoadSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, []aggregate.Point{{Row: 0, Value: 0.5}}, series[0].Points)
	assert.Equal(t, []aggregate.Point{{Row: 0, Value: 0.5}}, series[1].Points)

	_, err = runner.Run(context.Background(), mustDate(t, "20240102"))
	require.ErrorIs(t, err, state.ErrAlreadyApplied)
}

func TestRun_PublishesEvent(t *testing.T) {
	t.Parallel()

	var events []notify.Event

	runner := newRunner(batchSource(t, singleTrip), state.NewMemoryRepository())
	runner.Notifier = notify.NotifierFunc(func(_ context.Context, ev notify.Event) error {
		events = append(events, ev)

		return nil
	})

	summary, err := runner.Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)
	assert.True(t, summary.Notified)

	require.Len(t, events, 1)
	assert.Equal(t, summary.RunID, events[0].RunID)
	assert.Equal(t, "20240101", events[0].Date)
	assert.InDelta(t, 6.0, events[0].AvgPricePerMile, 1e-12)
	assert.Equal(t, "20240101_yellow_taxi_custom.json", events[0].Published["custom"])
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	repo := state.NewMemoryRepository()
	runner := newRunner(batchSource(t, singleTrip), repo)
	runner.Notifier = notify.NotifierFunc(func(context.Context, notify.Event) error {
		return errDisk
	})

	summary, err := runner.Run(context.Background(), mustDate(t, "20240101"))
	require.NoError(t, err)
	assert.False(t, summary.Notified)
	assert.Equal(t, 1, repo.Commits)
}

func TestRun_NoEventOnFailure(t *testing.T) {
	t.Parallel()

	called := false

	runner := newRunner(batchSource(t, singleTrip), failingCommitRepo{state.NewMemoryRepository()})
	runner.Notifier = notify.NotifierFunc(func(context.Context, notify.Event) error {
		called = true

		return nil
	})

	_, err := runner.Run(context.Background(), mustDate(t, "20240101"))
	require.Error(t, err)
	assert.False(t, called)
}
