// Package config loads the service configuration from a YAML file with
// environment overrides, falling back to defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hornshoofs/scoring-api/internal/auth"
)

// Config is the full service configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	Redis     RedisConfig     `yaml:"redis"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RedisConfig locates the key-value backend.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// StoreConfig tunes the retry discipline.
type StoreConfig struct {
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// AuthConfig holds the digest secrets. Empty values fall back to the
// protocol defaults.
type AuthConfig struct {
	Salt       string `yaml:"salt"`
	AdminSalt  string `yaml:"admin_salt"`
	AdminLogin string `yaml:"admin_login"`
}

// RateLimitConfig tunes the per-client limiter. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Redis:     RedisConfig{Addr: "localhost:6379"},
		Store:     StoreConfig{Retries: 3, RetryDelay: 3 * time.Second},
		Auth: AuthConfig{
			Salt:       auth.DefaultSalt,
			AdminSalt:  auth.DefaultAdminSalt,
			AdminLogin: auth.DefaultAdminLogin,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200},
	}
}

// LoadFromPath reads one YAML file over the defaults, then applies
// environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the file when it exists and falls back to defaults
// (plus environment overrides) otherwise.
func LoadOrDefault(path string) *Config {
	if cfg, err := LoadFromPath(path); err == nil {
		return cfg
	}
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SCORING_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("SCORING_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SCORING_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SCORING_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	if v := os.Getenv("SCORING_STORE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.Retries = n
		}
	}
	if v := os.Getenv("SCORING_STORE_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Store.RetryDelay = d
		}
	}
	if v := os.Getenv("SCORING_SALT"); v != "" {
		c.Auth.Salt = v
	}
	if v := os.Getenv("SCORING_ADMIN_SALT"); v != "" {
		c.Auth.AdminSalt = v
	}
	if v := os.Getenv("SCORING_ADMIN_LOGIN"); v != "" {
		c.Auth.AdminLogin = v
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Store.Retries < 1 {
		return fmt.Errorf("store retries must be at least 1, got %d", c.Store.Retries)
	}
	if c.Store.RetryDelay < 0 {
		return fmt.Errorf("store retry delay must not be negative")
	}
	return nil
}
