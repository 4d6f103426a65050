package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"MarketLens/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. MARKETLENS_OUTPUT_DIR.
const EnvPrefix = "MARKETLENS"

// Config holds all application configuration.
type Config struct {
	OutputDir    string             `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Proxy        string             `yaml:"proxy" envconfig:"PROXY"`
	AlphaVantage AlphaVantageConfig `yaml:"alphavantage" envconfig:"ALPHAVANTAGE"`
	Yahoo        YahooConfig        `yaml:"yahoo" envconfig:"YAHOO"`
	HTTP         HTTPConfig         `yaml:"http" envconfig:"HTTP"`
	Datasets     DatasetsConfig     `yaml:"datasets" envconfig:"DATASETS"`
	Chart        ChartConfig        `yaml:"chart" envconfig:"CHART"`
	Export       ExportConfig       `yaml:"export" envconfig:"EXPORT"`
	Storage      StorageConfig      `yaml:"storage" envconfig:"STORAGE"`
	Database     DatabaseConfig     `yaml:"database" envconfig:"DATABASE"`
	Schedule     ScheduleConfig     `yaml:"schedule" envconfig:"SCHEDULE"`
	Server       ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Telegram     TelegramConfig     `yaml:"telegram" envconfig:"TELEGRAM"`
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
}

type AlphaVantageConfig struct {
	APIKey            string `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL           string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Symbol            string `yaml:"symbol" envconfig:"SYMBOL" validate:"required"`
	Function          string `yaml:"function" envconfig:"FUNCTION" validate:"oneof=daily weekly weekly_adjusted"`
	RequestsPerMinute int    `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE" validate:"gte=0"`
}

type YahooConfig struct {
	BaseURL           string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	RequestsPerMinute int    `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE" validate:"gte=0"`
}

type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"gte=0,lte=10"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF"`
}

// DatasetConfig configures one series. Gold takes its symbol from
// alphavantage.symbol and a fixed 365-day window, so only Disabled applies to it.
type DatasetConfig struct {
	Disabled   bool   `yaml:"disabled" envconfig:"DISABLED"`
	Symbol     string `yaml:"symbol" envconfig:"SYMBOL"`
	WindowDays int    `yaml:"window_days" envconfig:"WINDOW_DAYS" validate:"omitempty,gte=1,lte=730"`
}

type DatasetsConfig struct {
	Gold  DatasetConfig `yaml:"gold" envconfig:"GOLD"`
	Tesla DatasetConfig `yaml:"tesla" envconfig:"TESLA"`
	SP500 DatasetConfig `yaml:"sp500" envconfig:"SP500"`
}

// Get returns the settings of one dataset.
func (d *DatasetsConfig) Get(name model.DatasetName) DatasetConfig {
	switch name {
	case model.DatasetGold:
		return d.Gold
	case model.DatasetTesla:
		return d.Tesla
	case model.DatasetSP500:
		return d.SP500
	}
	return DatasetConfig{Disabled: true}
}

// Enabled lists the datasets that should be processed, in canonical order.
func (d *DatasetsConfig) Enabled() []model.DatasetName {
	var out []model.DatasetName
	for _, name := range model.AllDatasets {
		if !d.Get(name).Disabled {
			out = append(out, name)
		}
	}
	return out
}

type ChartConfig struct {
	Disabled      bool   `yaml:"disabled" envconfig:"DISABLED"`
	Mode          string `yaml:"mode" envconfig:"MODE" validate:"oneof=individual combined"`
	OpenBrowser   bool   `yaml:"open_browser" envconfig:"OPEN_BROWSER"`
	MovingAverage int    `yaml:"moving_average" envconfig:"MOVING_AVERAGE" validate:"gte=0"`
}

type ExportConfig struct {
	DisableCSV  bool   `yaml:"disable_csv" envconfig:"DISABLE_CSV"`
	Parquet     bool   `yaml:"parquet" envconfig:"PARQUET"`
	XLSX        bool   `yaml:"xlsx" envconfig:"XLSX"`
	Compression string `yaml:"compression" envconfig:"COMPRESSION" validate:"oneof=snappy gzip none"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled" envconfig:"ENABLED"`
	Bucket          string `yaml:"bucket" envconfig:"BUCKET" validate:"required_if=Enabled true"`
	Region          string `yaml:"region" envconfig:"REGION"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
	PathStyle       bool   `yaml:"path_style" envconfig:"PATH_STYLE"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3" envconfig:"S3"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

type ScheduleConfig struct {
	Cron       string `yaml:"cron" envconfig:"CRON" validate:"required"`
	RunOnStart bool   `yaml:"run_on_start" envconfig:"RUN_ON_START"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"required"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID" validate:"required_with=BotToken"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL"`
	Format     string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output     string `yaml:"output" envconfig:"OUTPUT"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS" validate:"gte=0"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	// Unprefixed variables kept for existing deployments
	if v := os.Getenv("GOLD_API_KEY"); v != "" && cfg.AlphaVantage.APIKey == "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && cfg.Proxy == "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.AlphaVantage.BaseURL == "" {
		c.AlphaVantage.BaseURL = "https://www.alphavantage.co/query"
	}
	if c.AlphaVantage.Symbol == "" {
		c.AlphaVantage.Symbol = "XAUUSD"
	}
	if c.AlphaVantage.Function == "" {
		c.AlphaVantage.Function = "daily"
	}
	if c.AlphaVantage.RequestsPerMinute == 0 {
		c.AlphaVantage.RequestsPerMinute = 5
	}
	if c.Yahoo.BaseURL == "" {
		c.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Yahoo.RequestsPerMinute == 0 {
		c.Yahoo.RequestsPerMinute = 60
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.RetryBackoff == 0 {
		c.HTTP.RetryBackoff = time.Second
	}
	if c.Datasets.Tesla.Symbol == "" {
		c.Datasets.Tesla.Symbol = "TSLA"
	}
	if c.Datasets.Tesla.WindowDays == 0 {
		c.Datasets.Tesla.WindowDays = 365
	}
	if c.Datasets.SP500.Symbol == "" {
		c.Datasets.SP500.Symbol = "^GSPC"
	}
	if c.Datasets.SP500.WindowDays == 0 {
		c.Datasets.SP500.WindowDays = 365
	}
	if c.Chart.Mode == "" {
		c.Chart.Mode = "individual"
	}
	if c.Export.Compression == "" {
		c.Export.Compression = "snappy"
	}
	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = "us-east-1"
	}
	if c.Storage.S3.Prefix == "" {
		c.Storage.S3.Prefix = "marketlens"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 22 * * 1-5"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":9108"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that required settings are present and well formed.
// Every failure is a *model.ConfigurationError.
func (c *Config) Validate() error {
	if !c.Datasets.Gold.Disabled && strings.TrimSpace(c.AlphaVantage.APIKey) == "" {
		return &model.ConfigurationError{Key: "alphavantage.api_key", Reason: "is required"}
	}
	if c.Datasets.Gold.Symbol != "" {
		return &model.ConfigurationError{Key: "datasets.gold.symbol", Reason: "is not supported, set alphavantage.symbol"}
	}
	if c.Datasets.Gold.WindowDays != 0 {
		return &model.ConfigurationError{Key: "datasets.gold.window_days", Reason: "is not supported, the commodity window is fixed at 365 days"}
	}
	if len(c.Datasets.Enabled()) == 0 {
		return &model.ConfigurationError{Key: "datasets", Reason: "must enable at least one dataset"}
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &model.ConfigurationError{Key: key, Reason: reason}
	}
	return &model.ConfigurationError{Key: "config", Reason: err.Error()}
}
