package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance, reading the optional config
// file and the THREAT_ENGINE_* environment overrides
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/threat-engine/")
	v.AddConfigPath("$HOME/.threat-engine")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("THREAT_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults plus environment.
	}

	return &Config{v: v}, nil
}

// NewFromViper wraps an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a Viper instance carrying only the defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Tier thresholds on the 0-100 scale; the boundary value belongs to
	// the lower tier.
	v.SetDefault("tiers.safe_threshold", 30.0)
	v.SetDefault("tiers.suspicious_threshold", 70.0)

	// Hybrid combination
	v.SetDefault("hybrid.model_weight", 0.6)
	v.SetDefault("hybrid.fail_open", false)
	v.SetDefault("hybrid.min_cache_confidence", 0.85)

	// Trainable classifier
	v.SetDefault("classifier.model_path", "models/spam_classifier.json")
	v.SetDefault("classifier.min_training_samples", 50)

	// Rule lists
	v.SetDefault("rules.phishing_keywords", []string{
		"verify your account", "confirm your identity", "suspended account",
		"unusual activity", "click here immediately", "urgent action required",
		"verify your password", "confirm your information", "account will be closed",
		"security alert", "unauthorized access", "update payment method",
		"prize winner", "claim your reward", "act now", "limited time offer",
	})
	v.SetDefault("rules.suspicious_tlds", []string{
		".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".work", ".click",
	})
	v.SetDefault("rules.url_shorteners", []string{
		"bit.ly", "tinyurl.com", "goo.gl", "ow.ly", "t.co", "is.gd",
		"buff.ly", "adf.ly", "short.link",
	})
	v.SetDefault("rules.trusted_domains", []string{
		"google.com", "github.com", "microsoft.com", "amazon.com",
	})
	v.SetDefault("rules.free_providers", []string{
		"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
		"aol.com", "mail.com", "protonmail.com",
	})
	v.SetDefault("rules.brands", []string{
		"paypal", "amazon", "google", "microsoft", "apple", "bank",
	})

	// Verdict cache
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/verdict_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/threat_engine")

	// CLI frontend
	v.SetDefault("cli.verbose", false)

	// Server / frontend
	v.SetDefault("server.frontend_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_spam", false)
	v.SetDefault("server.headers.tier", "X-Threat-Tier")
	v.SetDefault("server.headers.score", "X-Threat-Score")
	v.SetDefault("server.headers.indicators", "X-Threat-Indicators")
	v.SetDefault("server.relay.enabled", false)
	v.SetDefault("server.relay.address", "127.0.0.1")
	v.SetDefault("server.relay.port", 10026)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
