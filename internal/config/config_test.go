package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"MarketLens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOLD_API_KEY", "HTTPS_PROXY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"MARKETLENS_ALPHAVANTAGE_API_KEY", "MARKETLENS_OUTPUT_DIR", "MARKETLENS_CHART_MODE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "XAUUSD", cfg.AlphaVantage.Symbol)
	assert.Equal(t, "daily", cfg.AlphaVantage.Function)
	assert.Equal(t, "TSLA", cfg.Datasets.Tesla.Symbol)
	assert.Equal(t, "^GSPC", cfg.Datasets.SP500.Symbol)
	assert.Equal(t, 365, cfg.Datasets.Tesla.WindowDays)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "individual", cfg.Chart.Mode)
	assert.Equal(t, []model.DatasetName{model.DatasetGold, model.DatasetTesla, model.DatasetSP500}, cfg.Datasets.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
output_dir: /tmp/charts
alphavantage:
  api_key: from-file
  function: weekly_adjusted
http:
  timeout: 5s
datasets:
  sp500:
    window_days: 730
  tesla:
    disabled: true
chart:
  mode: combined
`)
	t.Setenv("MARKETLENS_ALPHAVANTAGE_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/charts", cfg.OutputDir)
	assert.Equal(t, "from-env", cfg.AlphaVantage.APIKey)
	assert.Equal(t, "weekly_adjusted", cfg.AlphaVantage.Function)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 730, cfg.Datasets.SP500.WindowDays)
	assert.Equal(t, "combined", cfg.Chart.Mode)
	assert.Equal(t, []model.DatasetName{model.DatasetGold, model.DatasetSP500}, cfg.Datasets.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_LegacyAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOLD_API_KEY", "legacy")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.AlphaVantage.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "output_dir: [unterminated"))
	assert.Error(t, err)
}

func TestValidate_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	var cerr *model.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "alphavantage.api_key", cerr.Key)

	// Not needed when the commodity series is switched off.
	cfg.Datasets.Gold.Disabled = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Tags(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"chart mode", func(c *Config) { c.Chart.Mode = "grid" }, "chart.mode"},
		{"function", func(c *Config) { c.AlphaVantage.Function = "intraday" }, "alphavantage.function"},
		{"window", func(c *Config) { c.Datasets.Tesla.WindowDays = 1000 }, "datasets.tesla.window_days"},
		{"gold symbol", func(c *Config) { c.Datasets.Gold.Symbol = "GLD" }, "datasets.gold.symbol"},
		{"gold window", func(c *Config) { c.Datasets.Gold.WindowDays = 730 }, "datasets.gold.window_days"},
		{"bucket", func(c *Config) { c.Storage.S3.Enabled = true }, "storage.s3.bucket"},
		{"chat id", func(c *Config) { c.Telegram.BotToken = "token" }, "telegram.chat_id"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			cfg.AlphaVantage.APIKey = "key"
			tt.mutate(cfg)

			err = cfg.Validate()
			var cerr *model.ConfigurationError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.key, cerr.Key)
		})
	}
}

func TestValidate_NoDatasets(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Datasets.Gold.Disabled = true
	cfg.Datasets.Tesla.Disabled = true
	cfg.Datasets.SP500.Disabled = true
	assert.Error(t, cfg.Validate())
}
