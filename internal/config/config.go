package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither the flag nor the environment
// variable names a config file.
const DefaultConfigPath = "config.yaml"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "HAPPYBARRIER_CONFIG"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
	Mode string `yaml:"mode"` // gin mode: debug, release or test.
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // postgres or sqlite DSN.
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiryHours int    `yaml:"expiry_hours"`
}

// Expiry returns the token lifetime as a duration.
func (c JWTConfig) Expiry() time.Duration {
	hours := c.ExpiryHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// RedisConfig holds the optional settings cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"` // Empty disables the cache.
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig holds message broker settings.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	OutboundTopic string   `yaml:"outbound_topic"` // Outgoing SMS commands.
	ReportTopic   string   `yaml:"report_topic"`   // Gateway delivery reports.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // Empty logs to stdout.
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

// ResolveConfigPath picks the config file path from the explicit value, the
// environment, or the default, in that order.
func ResolveConfigPath(explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if fromEnv := strings.TrimSpace(os.Getenv(EnvConfigPath)); fromEnv != "" {
		return fromEnv
	}
	return DefaultConfigPath
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if errUnmarshal := yaml.Unmarshal(raw, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return cfg, fmt.Errorf("config: database.dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return cfg, fmt.Errorf("config: jwt.secret is required")
	}
	return cfg, nil
}

func defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.JWT.ExpiryHours <= 0 {
		cfg.JWT.ExpiryHours = 24
	}
	if cfg.Kafka.OutboundTopic == "" {
		cfg.Kafka.OutboundTopic = "sms_outbound"
	}
	if cfg.Kafka.ReportTopic == "" {
		cfg.Kafka.ReportTopic = "sms_configuration"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
}
