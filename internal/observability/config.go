// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for tripstat.
package observability

import (
	"io"
	"log/slog"
	"time"
)

// AppMode identifies the command being executed.
type AppMode string

const (
	// ModeRun is the snapshot aggregation run.
	ModeRun AppMode = "run"
	// ModeReport is the read-only state report.
	ModeReport AppMode = "report"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "tripstat"

	// defaultShutdownTimeout bounds the telemetry flush.
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "dev").
	Environment string

	// Mode identifies the command being executed.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string

	// MetricsTextfile is the Prometheus textfile written on shutdown.
	// Empty disables it.
	MetricsTextfile string

	// SampleRatio is the trace sampling ratio. Zero samples every root span.
	SampleRatio float64

	// ShutdownTimeout is the maximum time to wait for flush on shutdown.
	ShutdownTimeout time.Duration

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// LogJSON enables JSON-formatted log output.
	LogJSON bool
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeRun,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}
