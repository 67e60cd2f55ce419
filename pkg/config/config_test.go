package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tripstat/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tripstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Source.Dir)
	assert.Equal(t, "parquet", cfg.Source.Format)
	assert.Empty(t, cfg.Source.Pattern)
	assert.Equal(t, ".", cfg.State.Dir)
	assert.Equal(t, "yellow_taxi", cfg.State.Prefix)
	assert.Empty(t, cfg.State.ArchiveDir)
	assert.Equal(t, slog.LevelInfo, cfg.Logging.SlogLevel())
	assert.False(t, cfg.Logging.JSON())
	assert.Equal(t, 5*time.Second, cfg.Telemetry.ShutdownTimeout)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.False(t, cfg.Notify.Enabled())
	assert.Equal(t, "tripstat.runs", cfg.Notify.Topic)
	assert.Equal(t, 3, cfg.Notify.Retries)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
source:
  dir: /data/trips
  format: CSV
  pattern: "{YYYYMMDD}.csv"
state:
  dir: /var/lib/tripstat
  archive_dir: /var/lib/tripstat/archive
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
metrics:
  textfile: /var/lib/node_exporter/tripstat.prom
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/trips", cfg.Source.Dir)
	assert.Equal(t, "csv", cfg.Source.Format)
	assert.Equal(t, "{YYYYMMDD}.csv", cfg.Source.Pattern)
	assert.Equal(t, "/var/lib/tripstat", cfg.State.Dir)
	assert.Equal(t, "yellow_taxi", cfg.State.Prefix)
	assert.Equal(t, "/var/lib/tripstat/archive", cfg.State.ArchiveDir)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	assert.True(t, cfg.Logging.JSON())
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.Equal(t, "/var/lib/node_exporter/tripstat.prom", cfg.Metrics.Textfile)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TRIPSTAT_STATE_DIR", "/tmp/env-state")
	t.Setenv("TRIPSTAT_STATE_PREFIX", "green_taxi")
	t.Setenv("TRIPSTAT_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env-state", cfg.State.Dir)
	assert.Equal(t, "green_taxi", cfg.State.Prefix)
	assert.Equal(t, slog.LevelWarn, cfg.Logging.SlogLevel())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "format", content: "source:\n  format: xlsx\n", want: config.ErrInvalidFormat},
		{name: "state_dir", content: "state:\n  dir: \"\"\n", want: config.ErrEmptyStateDir},
		{name: "prefix_separator", content: "state:\n  prefix: a/b\n", want: config.ErrInvalidPrefix},
		{name: "log_level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "log_format", content: "logging:\n  format: xml\n", want: config.ErrInvalidLogFormat},
		{name: "notify_topic", content: "notify:\n  brokers: kafka:9092\n  topic: \"\"\n", want: config.ErrMissingTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TRIPSTAT_DOTENV_TEST_SOURCE_DIR"

	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=/from/dotenv\n"), 0o600))

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "/from/dotenv", os.Getenv(key))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestNotifyConfigBrokerList(t *testing.T) {
	t.Parallel()

	c := config.NotifyConfig{Brokers: " kafka-1:9092, ,kafka-2:9092 "}

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.BrokerList())
	assert.True(t, c.Enabled())
	assert.False(t, config.NotifyConfig{Brokers: " , "}.Enabled())
}
