package config

// Source defaults.
const (
	DefaultSourceDir    = "."
	DefaultSourceFormat = "parquet"
)

// State defaults.
const (
	DefaultStateDir    = "."
	DefaultStatePrefix = "yellow_taxi"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultShutdownTimeout bounds the telemetry flush at exit.
const DefaultShutdownTimeout = "5s"

// Notify defaults.
const (
	DefaultNotifyTopic   = "tripstat.runs"
	DefaultNotifyRetries = 3
)

// DotEnvFile is the environment file loaded before the configuration.
const DotEnvFile = ".env"

// EnvPrefix prefixes every environment override, e.g. TRIPSTAT_STATE_DIR.
const EnvPrefix = "TRIPSTAT"
