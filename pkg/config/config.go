// Package config provides configuration loading and validation for tripstat.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat    = errors.New("invalid source format")
	ErrEmptyStateDir    = errors.New("state directory must be set")
	ErrInvalidPrefix    = errors.New("invalid state prefix")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrMissingTopic     = errors.New("notify topic must be set when brokers are configured")
)

var (
	validFormats    = []string{"parquet", "csv"}
	validLogFormats = []string{"text", "json"}
	logLevels       = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// Config holds all configuration for tripstat.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	State     StateConfig     `mapstructure:"state"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// SourceConfig locates the daily snapshots.
type SourceConfig struct {
	Dir     string `mapstructure:"dir"`
	Format  string `mapstructure:"format"`
	Pattern string `mapstructure:"pattern"`
}

// StateConfig locates the persisted aggregates.
type StateConfig struct {
	Dir        string `mapstructure:"dir"`
	Prefix     string `mapstructure:"prefix"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel returns the configured level. Unknown levels map to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	level, ok := logLevels[strings.ToLower(c.Level)]
	if !ok {
		return slog.LevelInfo
	}

	return level
}

// JSON reports whether logs are written as JSON.
func (c LoggingConfig) JSON() bool { return strings.EqualFold(c.Format, "json") }

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string        `mapstructure:"otlp_headers"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	OTLPInsecure    bool          `mapstructure:"otlp_insecure"`
}

// MetricsConfig configures the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// NotifyConfig configures the Kafka event published after each run.
// Publishing is disabled while Brokers is empty.
type NotifyConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	Retries int    `mapstructure:"retries"`
}

// BrokerList splits the comma-separated broker addresses.
func (c NotifyConfig) BrokerList() []string {
	var brokers []string

	for b := range strings.SplitSeq(c.Brokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

// Enabled reports whether run events are published.
func (c NotifyConfig) Enabled() bool { return len(c.BrokerList()) > 0 }

// LoadDotEnv exports the variables of an env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("tripstat")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/tripstat")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults registers every key so that environment overrides apply on
// Unmarshal.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("source.dir", DefaultSourceDir)
	viperCfg.SetDefault("source.format", DefaultSourceFormat)
	viperCfg.SetDefault("source.pattern", "")

	viperCfg.SetDefault("state.dir", DefaultStateDir)
	viperCfg.SetDefault("state.prefix", DefaultStatePrefix)
	viperCfg.SetDefault("state.archive_dir", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultShutdownTimeout)

	viperCfg.SetDefault("metrics.textfile", "")

	viperCfg.SetDefault("notify.brokers", "")
	viperCfg.SetDefault("notify.topic", DefaultNotifyTopic)
	viperCfg.SetDefault("notify.retries", DefaultNotifyRetries)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	config.Source.Format = strings.ToLower(config.Source.Format)
	if !slices.Contains(validFormats, config.Source.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Source.Format)
	}

	if config.State.Dir == "" {
		return ErrEmptyStateDir
	}

	if config.State.Prefix == "" || strings.ContainsAny(config.State.Prefix, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, config.State.Prefix)
	}

	if _, ok := logLevels[strings.ToLower(config.Logging.Level)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	if !slices.Contains(validLogFormats, strings.ToLower(config.Logging.Format)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Notify.Enabled() && config.Notify.Topic == "" {
		return ErrMissingTopic
	}

	return nil
}
