package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tripstat/internal/observability"
	"github.com/Sumatoshi-tech/tripstat/internal/report"
	"github.com/Sumatoshi-tech/tripstat/pkg/persist"
)

type reportCommand struct {
	configPath *string
	format     string
	htmlPath   string
}

func newReportCommand(configPath *string) *cobra.Command {
	rc := &reportCommand{configPath: configPath}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the persisted aggregates",
		Long:  "Print the running aggregates of the state directory. The state is only read.",
		Args:  noArgs,
		RunE:  rc.run,
	}

	cmd.Flags().StringVarP(&rc.format, "format", "f", report.FormatTable,
		"Output format: "+strings.Join(report.Formats, ", "))
	cmd.Flags().StringVar(&rc.htmlPath, "html", "", "Also write an HTML page with charts to this file")

	return cmd
}

func (rc *reportCommand) run(cmd *cobra.Command, _ []string) (err error) {
	if !slices.Contains(report.Formats, rc.format) {
		return fmt.Errorf("%w: %w: %q", ErrUsage, report.ErrUnknownFormat, rc.format)
	}

	cfg, err := loadConfig(*rc.configPath)
	if err != nil {
		return err
	}

	oc := observabilityConfig(cfg, observability.ModeReport)
	oc.LogOutput = cmd.ErrOrStderr()
	oc.MetricsTextfile = ""

	providers, err := observability.Init(oc)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
	}()

	ctx, span := providers.Tracer.Start(cmd.Context(), "tripstat.report")
	defer span.End()

	rep, err := report.Build(ctx, newFileRepository(cfg, providers))
	if err != nil {
		return err
	}

	err = report.Write(cmd.OutOrStdout(), rep, rc.format)
	if err != nil {
		return err
	}

	if rc.htmlPath == "" {
		return nil
	}

	err = persist.WriteAtomic(rc.htmlPath, func(w io.Writer) error {
		return report.WriteHTML(w, rep)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", rc.htmlPath, err)
	}

	return nil
}
