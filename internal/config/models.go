package config

// RulesConfig carries the configured detection lists
type RulesConfig struct {
	PhishingKeywords []string
	SuspiciousTLDs   []string
	URLShorteners    []string
	TrustedDomains   []string
	FreeProviders    []string
	Brands           []string
}

// ClassifierConfig carries the trainable classifier settings
type ClassifierConfig struct {
	ModelPath          string
	MinTrainingSamples int
}

// HybridConfig carries the score-combination settings
type HybridConfig struct {
	ModelWeight        float64
	FailOpen           bool
	MinCacheConfidence float64
}

// TierConfig carries the classification thresholds
type TierConfig struct {
	SafeThreshold       float64
	SuspiciousThreshold float64
}

// ServerConfig carries the SMTP frontend settings
type ServerConfig struct {
	FrontendType     string
	ListenAddress    string
	BlockSpam        bool
	TierHeader       string
	ScoreHeader      string
	IndicatorsHeader string
	RelayEnabled     bool
	RelayAddress     string
	RelayPort        int
}

// CacheConfig carries the verdict cache settings
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              string
	CleanupFrequency string
	SQLitePath       string
	MySQLDSN         string
}

// GetRules returns the rule list configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		PhishingKeywords: c.GetStringSlice("rules.phishing_keywords"),
		SuspiciousTLDs:   c.GetStringSlice("rules.suspicious_tlds"),
		URLShorteners:    c.GetStringSlice("rules.url_shorteners"),
		TrustedDomains:   c.GetStringSlice("rules.trusted_domains"),
		FreeProviders:    c.GetStringSlice("rules.free_providers"),
		Brands:           c.GetStringSlice("rules.brands"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		ModelPath:          c.GetString("classifier.model_path"),
		MinTrainingSamples: c.GetInt("classifier.min_training_samples"),
	}
}

// GetHybrid returns the hybrid combination configuration
func (c *Config) GetHybrid() HybridConfig {
	return HybridConfig{
		ModelWeight:        c.GetFloat64("hybrid.model_weight"),
		FailOpen:           c.GetBool("hybrid.fail_open"),
		MinCacheConfidence: c.GetFloat64("hybrid.min_cache_confidence"),
	}
}

// GetTiers returns the tier threshold configuration
func (c *Config) GetTiers() TierConfig {
	return TierConfig{
		SafeThreshold:       c.GetFloat64("tiers.safe_threshold"),
		SuspiciousThreshold: c.GetFloat64("tiers.suspicious_threshold"),
	}
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              c.GetString("cache.ttl"),
		CleanupFrequency: c.GetString("cache.cleanup_frequency"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}
}

// GetServer returns the SMTP frontend configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FrontendType:     c.GetString("server.frontend_type"),
		ListenAddress:    c.GetString("server.listen_address"),
		BlockSpam:        c.GetBool("server.block_spam"),
		TierHeader:       c.GetString("server.headers.tier"),
		ScoreHeader:      c.GetString("server.headers.score"),
		IndicatorsHeader: c.GetString("server.headers.indicators"),
		RelayEnabled:     c.GetBool("server.relay.enabled"),
		RelayAddress:     c.GetString("server.relay.address"),
		RelayPort:        c.GetInt("server.relay.port"),
	}
}
