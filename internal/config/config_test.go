package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "seedscan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 8*time.Second, cfg.Extract.ScrapeTimeout())
	assert.Equal(t, 20*time.Second, cfg.Extract.AITimeout())
	assert.Equal(t, 25*time.Second, cfg.Extract.OverallTimeout())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Cache.LivenessTimeout())
	assert.Equal(t, 3, cfg.Batch.GroupSize)
	assert.Equal(t, 2*time.Second, cfg.Batch.GroupDelay())
	assert.Equal(t, 10*time.Second, cfg.Batch.RetryBackoff())
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/seedscan
log:
  level: debug
  format: console
server:
  port: 9090
  tokens:
    tok-abc: user-1
batch:
  group_size: 5
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "user-1", cfg.Server.Tokens["tok-abc"])
	assert.Equal(t, 5, cfg.Batch.GroupSize)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Extract.ScrapeTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SEEDSCAN_STORE_DRIVER", "sqlite")
	t.Setenv("SEEDSCAN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("SEEDSCAN_SERVER_PORT", "3000")
	t.Setenv("SEEDSCAN_PERPLEXITY_KEY", "pplx-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "pplx-test", cfg.Perplexity.Key)
}

// validExtract returns a Config that passes extract-mode validation.
func validExtract() *Config {
	cfg := &Config{}
	cfg.Perplexity.Key = "pplx-key"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "seedscan.db"
	cfg.Batch.GroupSize = 3
	cfg.Extract.ScrapeTimeoutSecs = 8
	cfg.Extract.AITimeoutSecs = 20
	cfg.Extract.OverallTimeoutSecs = 25
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateExtract_AllPresent(t *testing.T) {
	assert.NoError(t, validExtract().Validate("extract"))
}

func TestValidateExtract_MissingKeys(t *testing.T) {
	cfg := validExtract()
	cfg.Perplexity.Key = ""
	cfg.Anthropic.Key = ""

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perplexity.key is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateExtract_BadDriver(t *testing.T) {
	cfg := validExtract()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateExtract_UmbrellaCoversAI(t *testing.T) {
	cfg := validExtract()
	cfg.Extract.OverallTimeoutSecs = 10

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overall_timeout_secs")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validExtract()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateMigrate_OnlyNeedsStore(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/seedscan"

	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateGroupSizeBounds(t *testing.T) {
	cfg := validExtract()

	cfg.Batch.GroupSize = 0
	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group_size must be between 1 and 10")

	cfg.Batch.GroupSize = 11
	err = cfg.Validate("extract")
	require.Error(t, err)

	cfg.Batch.GroupSize = 10
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validExtract().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
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

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
