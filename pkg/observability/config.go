// Package observability provides OpenTelemetry tracing and metrics plus the
// structured slog logger used by every gitpulse command.
package observability

import (
	"fmt"
	"log/slog"
	"strings"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot command.
	ModeCLI AppMode = "cli"
	// ModeWatch is the long-running polling dashboard.
	ModeWatch AppMode = "watch"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	defaultServiceName        = "gitpulse"
	defaultShutdownTimeoutSec = 5
	defaultLogMaxSizeMB       = 50
	defaultLogMaxBackups      = 3
	defaultLogMaxAgeDays      = 14
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio. Zero samples every root span.
	SampleRatio float64

	// Prometheus registers a Prometheus reader and exposes Providers.MetricsHandler.
	Prometheus bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogFormat is FormatText (colored when stderr is a terminal) or FormatJSON.
	LogFormat string

	// LogFile, when set, receives a copy of every record with size-based rotation.
	LogFile string

	// LogMaxSizeMB, LogMaxBackups and LogMaxAgeDays tune log file rotation.
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		LogFormat:          FormatText,
		LogMaxSizeMB:       defaultLogMaxSizeMB,
		LogMaxBackups:      defaultLogMaxBackups,
		LogMaxAgeDays:      defaultLogMaxAgeDays,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", s, err)
	}

	return level, nil
}
