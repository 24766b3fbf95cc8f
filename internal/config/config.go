// Package config loads hotelledger settings from a YAML file, the
// environment and built-in defaults, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmerrifield20/hotelledger/internal/webhooks"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Webhooks WebhooksConfig `mapstructure:"webhooks"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPS    int           `mapstructure:"rate_limit_rps"`
	AllowTamper     bool          `mapstructure:"allow_tamper"`
	Timezone        string        `mapstructure:"timezone"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// GRPCConfig holds the gRPC health listener. Port 0 disables it.
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

// AuditConfig controls the background integrity audit. Zero disables it.
type AuditConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// WebhooksConfig lists the receivers notified of ledger events.
type WebhooksConfig struct {
	Timeout   time.Duration       `mapstructure:"timeout"`
	Endpoints []webhooks.Endpoint `mapstructure:"endpoints"`
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.allow_tamper", false)
	v.SetDefault("server.timezone", "Local")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("grpc.port", 0)
	v.SetDefault("audit.interval", "1m")
	v.SetDefault("webhooks.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads hotelledger.yaml from configs/ or the working directory when
// present and overlays environment variables (server.port -> SERVER_PORT).
// A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetConfigName("hotelledger")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// PORT is what most PaaS runtimes inject.
	if err := v.BindEnv("server.port", "SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind port env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that viper cannot type-check.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.Server.Location(); err != nil {
		return err
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("grpc.port %d out of range", c.GRPC.Port)
	}
	if c.GRPC.Port == c.Server.Port {
		return fmt.Errorf("grpc.port %d clashes with server.port", c.GRPC.Port)
	}
	if c.Audit.Interval < 0 {
		return errors.New("audit.interval must not be negative")
	}
	for i, ep := range c.Webhooks.Endpoints {
		u, err := url.Parse(ep.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhooks.endpoints[%d]: invalid url %q", i, ep.URL)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Location resolves the display timezone for block timestamps.
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server.timezone: %w", err)
	}
	return loc, nil
}

// Logger builds a zap logger at the configured level.
func (c LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
