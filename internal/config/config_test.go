package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmerrifield20/hotelledger/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 20, cfg.Server.RateLimitRPS)
	assert.False(t, cfg.Server.AllowTamper)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Zero(t, cfg.GRPC.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Audit.Interval)
	assert.Equal(t, 10*time.Second, cfg.Webhooks.Timeout)
	assert.Empty(t, cfg.Webhooks.Endpoints)
}

func TestLoad_fileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hotelledger.yaml"), []byte(`
server:
  port: 7000
  allow_tamper: true
  timezone: UTC
log:
  level: debug
`), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.True(t, cfg.Server.AllowTamper)
	assert.Equal(t, "warn", cfg.Log.Level)

	loc, err := cfg.Server.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_portEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "8081")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)

	t.Setenv("SERVER_PORT", "9090")
	cfg, err = config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port, "SERVER_PORT takes precedence over PORT")
}

func TestLoad_rejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("SERVER_TIMEZONE", "Mars/Olympus_Mons")
	_, err := config.Load(viper.New())
	assert.Error(t, err)

	t.Setenv("SERVER_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "chatty")
	_, err = config.Load(viper.New())
	assert.Error(t, err)

	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("SERVER_PORT", "70000")
	_, err = config.Load(viper.New())
	assert.Error(t, err)
}

func TestLogConfig_Logger(t *testing.T) {
	logger, err := config.LogConfig{Level: "debug", Development: true}.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = config.LogConfig{Level: "nope"}.Logger()
	assert.Error(t, err)
}

func TestLoad_webhooksAndAudit(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hotelledger.yaml"), []byte(`
audit:
  interval: 0s
webhooks:
  endpoints:
    - url: https://ops.example.com/hooks
      secret: s3cret
      events: [ledger.compromised]
    - url: http://localhost:9000/all
`), 0o600))

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Zero(t, cfg.Audit.Interval)
	require.Len(t, cfg.Webhooks.Endpoints, 2)
	assert.Equal(t, "https://ops.example.com/hooks", cfg.Webhooks.Endpoints[0].URL)
	assert.Equal(t, "s3cret", cfg.Webhooks.Endpoints[0].Secret)
	assert.Equal(t, []string{"ledger.compromised"}, cfg.Webhooks.Endpoints[0].Events)
	assert.Empty(t, cfg.Webhooks.Endpoints[1].Events)
}

func TestLoad_rejectsBadWebhookURL(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hotelledger.yaml"), []byte(`
webhooks:
  endpoints:
    - url: ftp://example.com/hook
`), 0o600))

	_, err := config.Load(viper.New())
	assert.ErrorContains(t, err, "webhooks.endpoints[0]")
}

func TestLoad_rejectsBadMetricsPath(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("METRICS_PATH", "metrics")
	_, err := config.Load(viper.New())
	assert.ErrorContains(t, err, "metrics.path")

	t.Setenv("METRICS_ENABLED", "false")
	_, err = config.Load(viper.New())
	assert.NoError(t, err, "path is ignored while metrics are off")

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 5000},
		Metrics: config.MetricsConfig{Enabled: true},
		Log:     config.LogConfig{Level: "info"},
	}
	assert.ErrorContains(t, cfg.Validate(), "metrics.path")
}

func TestValidate_grpcPort(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 5000},
		GRPC:   config.GRPCConfig{Port: 5001},
		Log:    config.LogConfig{Level: "info"},
	}
	require.NoError(t, cfg.Validate())

	cfg.GRPC.Port = 5000
	assert.ErrorContains(t, cfg.Validate(), "clashes")

	cfg.GRPC.Port = 70000
	assert.ErrorContains(t, cfg.Validate(), "grpc.port")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
