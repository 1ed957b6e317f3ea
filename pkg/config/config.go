// Package config loads license-server configuration from an optional YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// SMTP holds outbound email settings. All fields must be set for SMTP
// delivery; otherwise the server falls back to logging license keys.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// Config is the license-server configuration
type Config struct {
	Port        string `yaml:"port" validate:"required,numeric"`
	DatabaseURL string `yaml:"database_url"`
	DataDir     string `yaml:"data_dir"`

	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	AdminToken          string `yaml:"admin_token"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	SMTP SMTP `yaml:"smtp"`
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Port:     "8080",
		DataDir:  "./data/licenses",
		LogLevel: "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides config fields from the environment
func (c *Config) applyEnv() {
	setFromEnv(&c.Port, "PORT")
	setFromEnv(&c.DatabaseURL, "DATABASE_URL")
	setFromEnv(&c.DataDir, "DATA_DIR")
	setFromEnv(&c.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setFromEnv(&c.AdminToken, "ADMIN_TOKEN")
	setFromEnv(&c.LogLevel, "LOG_LEVEL")
	setFromEnv(&c.SMTP.Host, "SMTP_HOST")
	setFromEnv(&c.SMTP.Port, "SMTP_PORT")
	setFromEnv(&c.SMTP.Username, "SMTP_USERNAME")
	setFromEnv(&c.SMTP.Password, "SMTP_PASSWORD")
	setFromEnv(&c.SMTP.From, "FROM_EMAIL")
	setFromEnv(&c.SMTP.FromName, "FROM_NAME")
}

func setFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
