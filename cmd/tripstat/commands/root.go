// Package commands implements CLI command handlers for tripstat.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tripstat/internal/observability"
	"github.com/Sumatoshi-tech/tripstat/pkg/config"
	"github.com/Sumatoshi-tech/tripstat/pkg/snapshot"
	"github.com/Sumatoshi-tech/tripstat/pkg/state"
	"github.com/Sumatoshi-tech/tripstat/pkg/version"
)

// ErrUsage is returned for invalid command-line input.
var ErrUsage = errors.New("invalid usage")

// ShowsUsage reports whether the usage text should accompany err.
func ShowsUsage(err error) bool {
	return errors.Is(err, ErrUsage) || errors.Is(err, snapshot.ErrSourceUnavailable)
}

// NewRootCommand creates the tripstat command tree. The root command itself
// aggregates one snapshot.
func NewRootCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "tripstat --date YYYYMMDD",
		Short: "Incrementally aggregate daily taxi trip snapshots",
		Long: `tripstat merges the statistics of one daily trip snapshot into the
running aggregates kept in the state directory:

  avg price per mile     mean of total_amount / trip_distance
  payment distribution   trips per payment_type
  custom indicator       (tip_amount + extra) / trip_distance per trip, per day`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          rc.run,
	}

	cmd.PersistentFlags().StringVar(&rc.configPath, "config", "", "Config file (default: tripstat.yaml in ., ./config, /etc/tripstat)")
	cmd.Flags().StringVarP(&rc.date, "date", "d", "", "Snapshot date as YYYYMMDD")
	cmd.Flags().BoolVarP(&rc.quiet, "quiet", "q", false, "Suppress the run summary")

	cmd.SetFlagErrorFunc(usageError)

	cmd.AddCommand(newReportCommand(&rc.configPath))
	cmd.AddCommand(versionCmd())

	return cmd
}

// usageError marks a command-line parsing failure as a usage error.
func usageError(_ *cobra.Command, err error) error {
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// noArgs rejects positional arguments with a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	err := cobra.NoArgs(cmd, args)
	if err != nil {
		return usageError(cmd, err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// loadConfig reads the env file and the configuration.
func loadConfig(path string) (*config.Config, error) {
	err := config.LoadDotEnv(config.DotEnvFile)
	if err != nil {
		return nil, err
	}

	return config.LoadConfig(path)
}

func observabilityConfig(cfg *config.Config, mode observability.AppMode) observability.Config {
	oc := observability.DefaultConfig()
	oc.ServiceVersion = version.Version
	oc.Environment = cfg.Telemetry.Environment
	oc.Mode = mode
	oc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	oc.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	oc.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	oc.ShutdownTimeout = cfg.Telemetry.ShutdownTimeout
	oc.LogLevel = cfg.Logging.SlogLevel()
	oc.LogJSON = cfg.Logging.JSON()
	oc.MetricsTextfile = cfg.Metrics.Textfile

	return oc
}

func newFileRepository(cfg *config.Config, providers observability.Providers) *state.FileRepository {
	opts := []state.Option{
		state.WithPrefix(cfg.State.Prefix),
		state.WithLogger(providers.Logger),
	}

	if cfg.State.ArchiveDir != "" {
		opts = append(opts, state.WithArchiveDir(cfg.State.ArchiveDir))
	}

	return state.NewFileRepository(cfg.State.Dir, opts...)
}
