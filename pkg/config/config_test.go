package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/observability"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultRepoPath, cfg.Repository.Path)
	assert.Equal(t, gitlib.UntrackedFromConfig, cfg.UntrackedPolicy())
	assert.Equal(t, config.DefaultWorkers, cfg.Jobs.Workers)
	assert.Equal(t, config.DefaultNotifyBuffer, cfg.Jobs.NotifyBuffer)
	assert.Equal(t, config.DefaultTick, cfg.Jobs.Tick)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadConfig_ValidFileUnmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `repository:
  path: /srv/repo
  untracked: normal
jobs:
  workers: 3
  notify_buffer: 8
  tick: 2s
logging:
  level: debug
  format: json
  file: /tmp/gitpulse.log
telemetry:
  otlp_endpoint: localhost:4317
  otlp_headers: "api-key=abc"
  otlp_insecure: true
  sample_ratio: 0.5
  metrics_addr: ":9090"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/repo", cfg.Repository.Path)
	assert.Equal(t, gitlib.UntrackedNormal, cfg.UntrackedPolicy())
	assert.Equal(t, 3, cfg.Jobs.Workers)
	assert.Equal(t, 8, cfg.Jobs.NotifyBuffer)
	assert.Equal(t, 2*time.Second, cfg.Jobs.Tick)

	obs := cfg.Observability(observability.ModeWatch, "1.0.0")
	assert.Equal(t, observability.ModeWatch, obs.Mode)
	assert.Equal(t, "1.0.0", obs.ServiceVersion)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.Equal(t, observability.FormatJSON, obs.LogFormat)
	assert.Equal(t, "/tmp/gitpulse.log", obs.LogFile)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"api-key": "abc"}, obs.OTLPHeaders)
	assert.True(t, obs.OTLPInsecure)
	assert.True(t, obs.Prometheus)
	assert.InDelta(t, 0.5, obs.SampleRatio, 0.001)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GITPULSE_JOBS_WORKERS", "7")
	t.Setenv("GITPULSE_REPOSITORY_UNTRACKED", "no")

	cfg, err := config.LoadConfig(writeConfig(t, "jobs:\n  workers: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Jobs.Workers)
	assert.Equal(t, gitlib.UntrackedNo, cfg.UntrackedPolicy())
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "empty path", content: "repository:\n  path: \"  \"\n", want: config.ErrEmptyRepoPath},
		{name: "untracked", content: "repository:\n  untracked: sometimes\n", want: config.ErrInvalidUntracked},
		{name: "workers", content: "jobs:\n  workers: -1\n", want: config.ErrInvalidWorkers},
		{name: "buffer", content: "jobs:\n  notify_buffer: 0\n", want: config.ErrInvalidNotifyBuf},
		{name: "tick", content: "jobs:\n  tick: 0s\n", want: config.ErrInvalidTick},
		{name: "level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "format", content: "logging:\n  format: xml\n", want: config.ErrInvalidLogFormat},
		{name: "ratio", content: "telemetry:\n  sample_ratio: 2\n", want: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
