package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	AuthModeCasdoor = "casdoor"
	AuthModeHeader  = "header"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level
	RedisURL    string

	Database   DatabaseConfig
	Store      StoreConfig
	Auth       AuthConfig
	Casdoor    CasdoorConfig
	Events     EventsConfig
	Workflow   WorkflowConfig
	Migrations MigrationsConfig
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	TimeZone        string        `mapstructure:"timezone"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds a PostgreSQL connection string for the gorm driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.TimeZone,
	)
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type AuthConfig struct {
	// Mode selects how the caller identity is established: casdoor JWTs or
	// trusted X-User-ID / X-User-Role headers set by an upstream gateway.
	Mode string `mapstructure:"mode"`
}

type CasdoorConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Cert         string `mapstructure:"cert"`
	Organization string `mapstructure:"organization"`
	Application  string `mapstructure:"application"`
}

type EventsConfig struct {
	BufferSize int         `mapstructure:"buffer_size"`
	Kafka      KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether workflow events should be forwarded to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type WorkflowConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	// LegacyOpenVisibility lets assessors and moderators see UIDs that have
	// no assignment yet. Off by default.
	LegacyOpenVisibility bool `mapstructure:"legacy_open_visibility"`
}

type MigrationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from an optional .env file, an optional
// config.yaml and the environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("redis.url", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "training_workflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("auth.mode", AuthModeCasdoor)

	v.SetDefault("casdoor.endpoint", "")
	v.SetDefault("casdoor.client_id", "")
	v.SetDefault("casdoor.client_secret", "")
	v.SetDefault("casdoor.cert", "")
	v.SetDefault("casdoor.organization", "")
	v.SetDefault("casdoor.application", "")

	v.SetDefault("events.buffer_size", 64)
	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "training.workflow.events")

	v.SetDefault("workflow.max_retries", 3)
	v.SetDefault("workflow.legacy_open_visibility", false)

	v.SetDefault("migrations.enabled", true)
}

type rawConfig struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	Redis       struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`

	Database   DatabaseConfig   `mapstructure:"database"`
	Store      StoreConfig      `mapstructure:"store"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Casdoor    CasdoorConfig    `mapstructure:"casdoor"`
	Events     EventsConfig     `mapstructure:"events"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
}

func fromViper(v *viper.Viper) (*Config, error) {
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	level, err := parseLogLevel(raw.LogLevel)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: raw.Environment,
		Port:        raw.Port,
		LogLevel:    level,
		RedisURL:    raw.Redis.URL,
		Database:    raw.Database,
		Store:       raw.Store,
		Auth:        raw.Auth,
		Casdoor:     raw.Casdoor,
		Events:      raw.Events,
		Workflow:    raw.Workflow,
		Migrations:  raw.Migrations,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("invalid config: port is required")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid config: unknown store driver %q", c.Store.Driver)
	}

	switch c.Auth.Mode {
	case AuthModeCasdoor:
		if c.Casdoor.Endpoint == "" {
			return fmt.Errorf("invalid config: casdoor.endpoint is required in casdoor auth mode")
		}
	case AuthModeHeader:
	default:
		return fmt.Errorf("invalid config: unknown auth mode %q", c.Auth.Mode)
	}

	if c.Workflow.MaxRetries < 1 {
		return fmt.Errorf("invalid config: workflow.max_retries must be at least 1")
	}

	if c.Events.BufferSize < 1 {
		return fmt.Errorf("invalid config: events.buffer_size must be at least 1")
	}

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(raw)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return level, nil
}
