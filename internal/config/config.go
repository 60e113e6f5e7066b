// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	Pincodes  []string        `yaml:"pincodes"`
	Retailers RetailersConfig `yaml:"retailers"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings. URL, when set,
// takes precedence over the individual fields (the usual shape on managed
// platforms that hand out a single DATABASE_URL).
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// TriggerConfig defines the shared secret for the cron trigger endpoint.
type TriggerConfig struct {
	Secret string `yaml:"secret"`
}

// RetailersConfig groups per-retailer adapter settings.
type RetailersConfig struct {
	Croma    CromaConfig    `yaml:"croma"`
	Flipkart FlipkartConfig `yaml:"flipkart"`
	Amazon   AmazonConfig   `yaml:"amazon"`
}

// CromaConfig defines the Croma inventory-promise API settings.
type CromaConfig struct {
	BaseURL         string        `yaml:"base_url"`
	SubscriptionKey string        `yaml:"subscription_key"`
	Timeout         time.Duration `yaml:"timeout"`
}

// FlipkartConfig defines the Flipkart page-fetch API settings.
type FlipkartConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AmazonConfig defines Product Advertising API credentials and endpoint.
type AmazonConfig struct {
	Host        string        `yaml:"host"`
	Region      string        `yaml:"region"`
	Marketplace string        `yaml:"marketplace"`
	PartnerTag  string        `yaml:"partner_tag"`
	AccessKey   string        `yaml:"access_key"`
	SecretKey   string        `yaml:"secret_key"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TelegramConfig defines the notification bot settings. An empty BotToken
// disables notifications (the noop notifier is used instead).
type TelegramConfig struct {
	BotToken     string        `yaml:"bot_token"`
	ChatIDs      []string      `yaml:"chat_ids"`
	APIURL       string        `yaml:"api_url"`
	SendInterval time.Duration `yaml:"send_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ScheduleConfig defines the internal scheduler. A zero CheckInterval
// disables it; the external cron trigger is then the only invoker.
type ScheduleConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyRetailerDefaults(&cfg.Retailers)
	applyTelegramDefaults(&cfg.Telegram)
	applyLoggingDefaults(&cfg.Logging)

	if len(cfg.Pincodes) == 0 {
		cfg.Pincodes = []string{"132001"}
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		// A full run is sequential HTTP calls; leave room for the whole pass.
		s.WriteTimeout = 120 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 4
	}
}

func applyRetailerDefaults(r *RetailersConfig) {
	if r.Croma.BaseURL == "" {
		r.Croma.BaseURL = "https://api.croma.com/inventory/oms/v2/tms/details-pwa/"
	}
	if r.Croma.Timeout == 0 {
		r.Croma.Timeout = 10 * time.Second
	}
	if r.Flipkart.BaseURL == "" {
		r.Flipkart.BaseURL = "https://2.rome.api.flipkart.com/api/4/page/fetch"
	}
	if r.Flipkart.Timeout == 0 {
		r.Flipkart.Timeout = 10 * time.Second
	}
	if r.Amazon.Host == "" {
		r.Amazon.Host = "webservices.amazon.in"
	}
	if r.Amazon.Region == "" {
		r.Amazon.Region = "eu-west-1"
	}
	if r.Amazon.Marketplace == "" {
		r.Amazon.Marketplace = "www.amazon.in"
	}
	if r.Amazon.Timeout == 0 {
		r.Amazon.Timeout = 10 * time.Second
	}
}

func applyTelegramDefaults(t *TelegramConfig) {
	if t.APIURL == "" {
		t.APIURL = "https://api.telegram.org"
	}
	if t.SendInterval == 0 {
		t.SendInterval = 500 * time.Millisecond
	}
	if t.Timeout == 0 {
		t.Timeout = 10 * time.Second
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Trigger.Secret == "" {
		errs = append(errs, fmt.Errorf("trigger.secret is required"))
	}

	if cfg.Database.URL == "" {
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when database.url is unset"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when database.url is unset"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when database.url is unset"))
		}
	}

	// Amazon credentials come as a set; reject a partial set early instead
	// of failing every check at runtime.
	a := &cfg.Retailers.Amazon
	partial := (a.AccessKey != "" || a.SecretKey != "" || a.PartnerTag != "") &&
		(a.AccessKey == "" || a.SecretKey == "" || a.PartnerTag == "")
	if partial {
		errs = append(errs, fmt.Errorf(
			"retailers.amazon requires access_key, secret_key and partner_tag together",
		))
	}

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ChatIDs) == 0 {
		errs = append(errs, fmt.Errorf("telegram.chat_ids is required when bot_token is set"))
	}

	return errors.Join(errs...)
}
