package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.ona.io", cfg.Source.BaseURL)
	assert.Equal(t, "864832", cfg.Source.FormID)
	assert.Empty(t, cfg.Source.Token)
	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, 3, cfg.Source.MaxRetries)
	assert.InDelta(t, 5.0, cfg.Source.RatePerSec, 0.001)
	assert.Equal(t, 3, cfg.Source.BreakerThreshold)
	assert.Equal(t, 300, cfg.Source.BreakerResetSecs)
	assert.Equal(t, "data", cfg.Storage.Dir)
	assert.Equal(t, "rdi_config.json", cfg.Settings.Path)
	assert.Equal(t, "@every 1h", cfg.Refresh.Interval)
	assert.True(t, cfg.Refresh.OnStart)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "rdi_runs.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, 16, cfg.Log.MaxSizeMB)
	assert.Equal(t, 8, cfg.Log.MaxBackups)
	assert.Equal(t, 30, cfg.Log.MaxAgeDays)

	assert.NoError(t, cfg.Validate(ModeServe))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  form_id: "1234"
  token: abc
store:
  driver: postgres
  database_url: postgres://localhost/rdi
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - https://dash.example.org
refresh:
  interval: "*/15 * * * *"
  on_start: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "1234", cfg.Source.FormID)
	assert.Equal(t, "abc", cfg.Source.Token)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/rdi", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://dash.example.org"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "*/15 * * * *", cfg.Refresh.Interval)
	assert.False(t, cfg.Refresh.OnStart)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, "data", cfg.Storage.Dir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: none
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RDI_STORE_DRIVER", "sqlite")
	t.Setenv("RDI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RDI_SERVER_PORT", "3000")
	t.Setenv("RDI_SOURCE_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Source.Token)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RDI_SOURCE_FORM_ID=777\n"), 0644))
	t.Setenv("RDI_SOURCE_FORM_ID", "")
	require.NoError(t, os.Unsetenv("RDI_SOURCE_FORM_ID"))

	require.NoError(t, LoadEnv())
	t.Cleanup(func() { os.Unsetenv("RDI_SOURCE_FORM_ID") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "777", cfg.Source.FormID)
}

func TestLoadEnvMissingFileIgnored(t *testing.T) {
	chdirTemp(t)
	assert.NoError(t, LoadEnv())
	assert.NoError(t, LoadEnv("does-not-exist.env"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdi.log")
	err := InitLogger(LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	require.NoError(t, err)

	zap.L().Info("file sink check", zap.String("component", "config_test"))
	_ = zap.L().Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink check")
	assert.Contains(t, string(data), "config_test")
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Source.BaseURL = "https://api.ona.io"
	cfg.Source.FormID = "864832"
	cfg.Source.TimeoutSecs = 30
	cfg.Storage.Dir = "data"
	cfg.Refresh.Interval = "@every 1h"
	cfg.Server.Port = 8080
	cfg.Store.Driver = DriverSQLite
	cfg.Store.DatabaseURL = "rdi_runs.db"
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate(ModeServe))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateRefresh_MissingSource(t *testing.T) {
	cfg := validDefaults()
	cfg.Source.FormID = ""
	cfg.Source.TimeoutSecs = 0

	err := cfg.Validate(ModeRefresh)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source.form_id is required")
	assert.Contains(t, err.Error(), "source.timeout_secs must be > 0")

	// Offline modes do not need the source.
	assert.NoError(t, cfg.Validate(ModeImport))
	assert.NoError(t, cfg.Validate(ModeReport))
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate(ModeRuns)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")

	cfg.Store.Driver = DriverPostgres
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate(ModeRuns)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = DriverNone
	assert.NoError(t, cfg.Validate(ModeRuns))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
