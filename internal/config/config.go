package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/dvloznov/brokerage-insights/internal/logger"
)

// EnvPrefix is prepended to every environment variable, e.g. BROKERAGE_DATA_PATH.
const EnvPrefix = "BROKERAGE"

// Config holds the settings for a pipeline run.
type Config struct {
	DataPath    string `yaml:"data_path" envconfig:"DATA_PATH"`
	ChartsDir   string `yaml:"charts_dir" envconfig:"CHARTS_DIR"`
	ReportsDir  string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	WindowYears int    `yaml:"window_years" envconfig:"WINDOW_YEARS"`
	Delimiter   string `yaml:"delimiter" envconfig:"DELIMITER"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`

	GCSBucket string `yaml:"gcs_bucket" envconfig:"GCS_BUCKET"`
	GCSPrefix string `yaml:"gcs_prefix" envconfig:"GCS_PREFIX"`

	// MetricsFile, when set, receives run metrics in the Prometheus text format.
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`

	Mailgun MailgunConfig `yaml:"mailgun" envconfig:"MAILGUN"`
}

// MailgunConfig holds the summary e-mail settings. Mail is sent only when
// every field is set.
type MailgunConfig struct {
	Domain    string `yaml:"domain" envconfig:"DOMAIN"`
	APIKey    string `yaml:"api_key" envconfig:"API_KEY"`
	Sender    string `yaml:"sender" envconfig:"SENDER"`
	Recipient string `yaml:"recipient" envconfig:"RECIPIENT"`
}

// Enabled reports whether all Mailgun settings are present.
func (m MailgunConfig) Enabled() bool {
	return m.Domain != "" && m.APIKey != "" && m.Sender != "" && m.Recipient != ""
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataPath:    "data/financial_data.csv",
		ChartsDir:   "charts",
		ReportsDir:  "reports",
		WindowYears: 2,
		Delimiter:   ",",
		LogLevel:    "info",
		LogFormat:   logger.FormatConsole,
		GCSPrefix:   "runs",
	}
}

// Load builds the configuration. Defaults are overridden by the optional YAML
// file at path, then by BROKERAGE_* environment variables (a .env file in the
// working directory is read first if present).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("Load: from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks settings that would otherwise fail late in a run.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return errors.New("data path must not be empty")
	}
	if c.WindowYears < 0 {
		return fmt.Errorf("window years must not be negative, got %d", c.WindowYears)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if c.LogFormat != logger.FormatConsole && c.LogFormat != logger.FormatJSON {
		return fmt.Errorf("unknown log format %q (want %s or %s)", c.LogFormat, logger.FormatConsole, logger.FormatJSON)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DelimiterRune returns the field delimiter as a single rune.
func (c *Config) DelimiterRune() (rune, error) {
	r := []rune(c.Delimiter)
	switch {
	case len(r) == 0:
		return ',', nil
	case len(r) == 1 && r[0] != '"' && r[0] != '\n' && r[0] != '\r':
		return r[0], nil
	}
	return 0, fmt.Errorf("invalid delimiter %q", c.Delimiter)
}
