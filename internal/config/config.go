// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, populated from environment
// variables (optionally via a .env file in the working directory).
type Config struct {
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	HubRiseAPIURL      string `mapstructure:"HUBRISE_API_URL"`
	HubRiseAccessToken string `mapstructure:"HUBRISE_ACCESS_TOKEN"`
	HubRiseLocationID  string `mapstructure:"HUBRISE_LOCATION_ID"`
	HubRiseCatalogID   string `mapstructure:"HUBRISE_CATALOG_ID"`

	PostcodesBaseURL   string `mapstructure:"POSTCODES_BASE_URL"`
	PostcodeTTLSeconds int    `mapstructure:"POSTCODE_TTL_SECONDS"`
	PostcodeCacheSize  int    `mapstructure:"POSTCODE_CACHE_SIZE"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	UltimagoUsername string `mapstructure:"ULTIMAGO_USERNAME"`
	UltimagoPassword string `mapstructure:"ULTIMAGO_PASSWORD"`

	AddressyAPIKey string `mapstructure:"ADDRESSY_API_KEY"`

	SMSEnabled        bool   `mapstructure:"SMS_ENABLED"`
	ClickSendUsername string `mapstructure:"CLICKSEND_USERNAME"`
	ClickSendAPIKey   string `mapstructure:"CLICKSEND_API_KEY"`
	SMSSender         string `mapstructure:"SMS_SENDER"`
}

// defaults mirror a local development setup; production overrides via env.
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HUBRISE_API_URL", "https://api.hubrise.com/v1")
	v.SetDefault("HUBRISE_ACCESS_TOKEN", "")
	v.SetDefault("HUBRISE_LOCATION_ID", "")
	v.SetDefault("HUBRISE_CATALOG_ID", "")
	v.SetDefault("POSTCODES_BASE_URL", "https://api.postcodes.io")
	v.SetDefault("POSTCODE_TTL_SECONDS", 86400)
	v.SetDefault("POSTCODE_CACHE_SIZE", 1000)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 6)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ULTIMAGO_USERNAME", "")
	v.SetDefault("ULTIMAGO_PASSWORD", "")
	v.SetDefault("ADDRESSY_API_KEY", "")
	v.SetDefault("SMS_ENABLED", false)
	v.SetDefault("CLICKSEND_USERNAME", "")
	v.SetDefault("CLICKSEND_API_KEY", "")
	v.SetDefault("SMS_SENDER", "")
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		// A missing .env is fine; anything else is a real problem.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PostcodeTTLSeconds <= 0 {
		return fmt.Errorf("POSTCODE_TTL_SECONDS must be positive (got %d)", c.PostcodeTTLSeconds)
	}
	if c.PostcodeCacheSize <= 0 {
		return fmt.Errorf("POSTCODE_CACHE_SIZE must be positive (got %d)", c.PostcodeCacheSize)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive (got %d)", c.HTTPTimeoutSeconds)
	}
	return nil
}

// HTTPTimeout returns the outbound call timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// PostcodeTTL returns the geocode cache TTL as a duration.
func (c *Config) PostcodeTTL() time.Duration {
	return time.Duration(c.PostcodeTTLSeconds) * time.Second
}

// HubRiseConfigured reports whether upstream credentials are present.
// Routes that forward to HubRise answer 503 when they are not.
func (c *Config) HubRiseConfigured() bool {
	return c.HubRiseAccessToken != ""
}
