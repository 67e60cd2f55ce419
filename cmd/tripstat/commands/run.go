package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tripstat/internal/notify"
	"github.com/Sumatoshi-tech/tripstat/internal/observability"
	"github.com/Sumatoshi-tech/tripstat/internal/pipeline"
	"github.com/Sumatoshi-tech/tripstat/pkg/snapshot"
)

// summaryPrecision is the number of decimals printed for averages.
const summaryPrecision = 4

// RunCommand holds the flags of the aggregation run.
type RunCommand struct {
	configPath string
	date       string
	quiet      bool
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) (err error) {
	if rc.date == "" {
		return fmt.Errorf("%w: --date is required", ErrUsage)
	}

	date, err := snapshot.ParseDate(rc.date)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	cfg, err := loadConfig(rc.configPath)
	if err != nil {
		return err
	}

	source, err := snapshot.NewSource(cfg.Source.Format, cfg.Source.Dir, cfg.Source.Pattern)
	if err != nil {
		return err
	}

	oc := observabilityConfig(cfg, observability.ModeRun)
	oc.LogOutput = cmd.ErrOrStderr()

	providers, err := observability.Init(oc)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
	}()

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	runner := &pipeline.Runner{
		Source:  source,
		Repo:    newFileRepository(cfg, providers),
		Logger:  providers.Logger,
		Tracer:  providers.Tracer,
		Metrics: metrics,
	}

	if cfg.Notify.Enabled() {
		notifier, notifyErr := notify.NewKafkaNotifier(cfg.Notify.BrokerList(), cfg.Notify.Topic,
			notify.WithRetries(cfg.Notify.Retries),
			notify.WithLogger(providers.Logger),
		)
		if notifyErr != nil {
			return fmt.Errorf("init notifier: %w", notifyErr)
		}

		defer func() {
			err = errors.Join(err, notifier.Close())
		}()

		runner.Notifier = notifier
	}

	summary, err := runner.Run(cmd.Context(), date)
	if err != nil {
		return err
	}

	if !rc.quiet {
		printSummary(cmd.OutOrStdout(), summary)
	}

	return nil
}

func printSummary(w io.Writer, s pipeline.Summary) {
	color.New(color.FgGreen).Fprintf(w, "%s aggregated: %s rows\n", s.Date, humanize.Comma(int64(s.Rows)))

	if s.Price.Empty() {
		fmt.Fprintln(w, "  avg price per mile   no data")
	} else {
		fmt.Fprintf(w, "  avg price per mile   %s over %s trips\n",
			strconv.FormatFloat(s.Price.Mean, 'f', summaryPrecision, 64), humanize.Comma(int64(s.Price.Count)))
	}

	fmt.Fprintf(w, "  payment types        %d (%s trips)\n",
		len(s.Distribution), humanize.Comma(int64(s.Distribution.Total())))
	fmt.Fprintf(w, "  custom indicator     %s rows\n", humanize.Comma(int64(s.IndicatorRows)))

	for _, name := range s.Recovered {
		color.New(color.FgYellow).Fprintf(w, "  unusable prior state %s was ignored\n", name)
	}

	names := slices.Sorted(maps.Values(s.Published.Names))

	fmt.Fprintf(w, "  published            %s\n", strings.Join(names, ", "))

	if s.Notified {
		fmt.Fprintln(w, "  run event            published")
	}
}
