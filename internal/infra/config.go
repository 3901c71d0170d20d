package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the hub. Loaded from YAML, then sensitive
// values are overridden through environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		InternalKey string `yaml:"internal_key"`
	} `yaml:"server"`

	Signals struct {
		DefaultSymbol       string            `yaml:"default_symbol"`
		Aliases             map[string]string `yaml:"aliases"`
		PipThreshold        decimal.Decimal   `yaml:"pip_threshold"`
		FreshnessSec        int               `yaml:"freshness_sec"`
		PositionMaxAgeHours int               `yaml:"position_max_age_hours"`
	} `yaml:"signals"`

	Storage struct {
		DBPath       string `yaml:"db_path"`
		FeedbackPath string `yaml:"feedback_path"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in the documented defaults for anything left unset.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Signals.DefaultSymbol == "" {
		c.Signals.DefaultSymbol = "XAUUSD"
	}
	if c.Signals.Aliases == nil {
		c.Signals.Aliases = map[string]string{
			"XAUUSD": "XAUUSD", "XAUUSDC": "XAUUSD", "XAUUSDM": "XAUUSD", "GOLD": "XAUUSD",
			"BTCUSD": "BTCUSD", "BTCUSDC": "BTCUSD", "BTCUSDM": "BTCUSD",
		}
	}
	if c.Signals.PipThreshold.IsZero() {
		c.Signals.PipThreshold = decimal.NewFromFloat(100.0)
	}
	if c.Signals.FreshnessSec == 0 {
		c.Signals.FreshnessSec = 300
	}
	if c.Signals.PositionMaxAgeHours == 0 {
		c.Signals.PositionMaxAgeHours = 8
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "data/subscribers.db"
	}
	if c.Storage.FeedbackPath == "" {
		c.Storage.FeedbackPath = "data/trade_feedback.json"
	}
	if c.Logging.File == "" {
		c.Logging.File = "logs/hub.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 28
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.InternalKey == "" {
		return fmt.Errorf("internal submit key is required")
	}
	if c.Signals.PipThreshold.IsNegative() {
		return fmt.Errorf("pip threshold must not be negative")
	}
	if c.Signals.FreshnessSec <= 0 {
		return fmt.Errorf("freshness window must be positive")
	}
	if c.Signals.PositionMaxAgeHours <= 0 {
		return fmt.Errorf("position max age must be positive")
	}
	if _, ok := c.Signals.Aliases[c.Signals.DefaultSymbol]; !ok {
		return fmt.Errorf("default symbol %s missing from alias table", c.Signals.DefaultSymbol)
	}
	return nil
}

// Freshness returns the signal freshness window as a duration.
func (c *Config) Freshness() time.Duration {
	return time.Duration(c.Signals.FreshnessSec) * time.Second
}

// PositionMaxAge returns the position forgetting window as a duration.
func (c *Config) PositionMaxAge() time.Duration {
	return time.Duration(c.Signals.PositionMaxAgeHours) * time.Hour
}

// overrideWithEnv overrides configuration values from the environment when
// present. Keeps the shared secret and deploy paths out of the YAML file.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("SIGNALHUB_INTERNAL_KEY"); key != "" {
		cfg.Server.InternalKey = key
	}
	if addr := os.Getenv("SIGNALHUB_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("SIGNALHUB_DB_PATH"); path != "" {
		cfg.Storage.DBPath = path
	}
	if path := os.Getenv("SIGNALHUB_FEEDBACK_PATH"); path != "" {
		cfg.Storage.FeedbackPath = path
	}
}
