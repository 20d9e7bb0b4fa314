// Package config loads gitpulse settings from a YAML file and GITPULSE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrEmptyRepoPath      = errors.New("repository path must not be empty")
	ErrInvalidUntracked   = errors.New("invalid untracked files mode")
	ErrInvalidWorkers     = errors.New("job workers must not be negative")
	ErrInvalidNotifyBuf   = errors.New("notify buffer must be positive")
	ErrInvalidTick        = errors.New("job tick must be positive")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

// Config holds all gitpulse configuration.
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// RepositoryConfig selects the repository and how status treats untracked files.
type RepositoryConfig struct {
	Path      string `mapstructure:"path"`
	Untracked string `mapstructure:"untracked"`
}

// JobsConfig tunes the background query machinery.
type JobsConfig struct {
	Workers      int           `mapstructure:"workers"`
	NotifyBuffer int           `mapstructure:"notify_buffer"`
	Tick         time.Duration `mapstructure:"tick"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
}

// LoadConfig loads configuration from configPath, or from the first
// gitpulse.yaml found in the search path when configPath is empty, then
// applies GITPULSE_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("gitpulse")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")

		if dir, err := os.UserConfigDir(); err == nil {
			viperCfg.AddConfigPath(filepath.Join(dir, "gitpulse"))
		}
	}

	viperCfg.SetEnvPrefix("GITPULSE")
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

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repository.path", DefaultRepoPath)
	viperCfg.SetDefault("repository.untracked", DefaultUntracked)

	viperCfg.SetDefault("jobs.workers", DefaultWorkers)
	viperCfg.SetDefault("jobs.notify_buffer", DefaultNotifyBuffer)
	viperCfg.SetDefault("jobs.tick", DefaultTick)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)
	viperCfg.SetDefault("logging.file", "")
	viperCfg.SetDefault("logging.max_size_mb", DefaultLogMaxSizeMB)
	viperCfg.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	viperCfg.SetDefault("logging.max_age_days", DefaultLogMaxAgeDays)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}

func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Repository.Path) == "" {
		return ErrEmptyRepoPath
	}

	if _, err := gitlib.ParseUntrackedPolicy(config.Repository.Untracked); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidUntracked, config.Repository.Untracked)
	}

	if config.Jobs.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Jobs.Workers)
	}

	if config.Jobs.NotifyBuffer <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNotifyBuf, config.Jobs.NotifyBuffer)
	}

	if config.Jobs.Tick <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTick, config.Jobs.Tick)
	}

	if _, err := observability.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case observability.FormatText, observability.FormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// UntrackedPolicy returns the parsed repository.untracked setting.
func (c *Config) UntrackedPolicy() gitlib.UntrackedPolicy {
	policy, err := gitlib.ParseUntrackedPolicy(c.Repository.Untracked)
	if err != nil {
		return gitlib.UntrackedFromConfig
	}

	return policy
}

// Observability maps the logging and telemetry sections onto an
// observability.Config for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()

	obs.Mode = mode
	obs.ServiceVersion = version
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.Prometheus = c.Telemetry.MetricsAddr != ""
	obs.LogFormat = c.Logging.Format
	obs.LogFile = c.Logging.File
	obs.LogMaxSizeMB = c.Logging.MaxSizeMB
	obs.LogMaxBackups = c.Logging.MaxBackups
	obs.LogMaxAgeDays = c.Logging.MaxAgeDays

	if level, err := observability.ParseLevel(c.Logging.Level); err == nil {
		obs.LogLevel = level
	}

	return obs
}
