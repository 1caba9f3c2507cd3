package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL           = "https://site.api.espn.com/apis/site/v2/sports"
	DefaultAttemptTimeout    = 10 * time.Second
	DefaultBrowserTimeout    = 20 * time.Second
	DefaultWatchInterval     = time.Minute
	DefaultHealthPort        = 8080
	DefaultSnapshotRetention = 24 * time.Hour
)

type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Resolver ResolverConfig `yaml:"resolver"`
	Logging  LoggingConfig  `yaml:"logging"`
	Health   HealthConfig   `yaml:"health"`
	Watch    WatchConfig    `yaml:"watch"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type UpstreamConfig struct {
	BaseURL   string            `yaml:"base_url" validate:"required,url"`
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
}

type ResolverConfig struct {
	// Per-attempt deadline; zero falls back to DefaultAttemptTimeout.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" validate:"gte=0"`
	// Relays in priority order. Empty means the built-in chain.
	Relays  []RelayConfig `yaml:"relays" validate:"dive"`
	Browser BrowserConfig `yaml:"browser"`
}

// RelayConfig either names a built-in relay (name only) or defines a custom
// one by prefix. Encode controls whether the target is query-escaped before
// being appended to the prefix.
type RelayConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Prefix string `yaml:"prefix" validate:"omitempty,url"`
	Encode bool   `yaml:"encode"`
}

type BrowserConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	File       string `yaml:"file"`        // empty = stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotation threshold for File
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type HealthConfig struct {
	Port              int           `yaml:"port" validate:"gte=0,lte=65535"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type WatchConfig struct {
	Interval  time.Duration `yaml:"interval" validate:"gte=0"`
	Sport     string        `yaml:"sport"`
	League    string        `yaml:"league"`
	Storage   string        `yaml:"storage" validate:"omitempty,oneof=memory postgres redis"`
	// Retention drops memory and postgres snapshots not seen for this long.
	Retention time.Duration `yaml:"retention" validate:"gte=0"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Default returns a configuration usable without a file on disk.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills unset fields and pulls secrets from the environment.
func (c *Config) ApplyDefaults() {
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultBaseURL
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Resolver.AttemptTimeout <= 0 {
		c.Resolver.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Resolver.Browser.Timeout <= 0 {
		c.Resolver.Browser.Timeout = DefaultBrowserTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = DefaultWatchInterval
	}
	if c.Watch.Storage == "" {
		c.Watch.Storage = "memory"
	}
	if c.Watch.Retention <= 0 {
		c.Watch.Retention = DefaultSnapshotRetention
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = DefaultSnapshotRetention
	}

	// Allow env overrides to avoid committing secrets into configs.
	if c.Telegram.BotToken == "" {
		c.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Postgres.DSN == "" {
		c.Postgres.DSN = os.Getenv("POSTGRES_DSN")
	}
	if c.Redis.Password == "" {
		c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Watch.Storage {
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("invalid config: watch.storage=postgres requires postgres.dsn")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("invalid config: watch.storage=redis requires redis.addr")
		}
	}
	return nil
}
