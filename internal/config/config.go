// Package config loads application configuration from config.yaml and
// SEEDSCAN_-prefixed environment variables, and owns global logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RulesConfig points at the optional vendor rules file. When Path is
// empty the built-in defaults apply.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig tunes the live extraction race.
type ExtractConfig struct {
	ScrapeTimeoutSecs  int `yaml:"scrape_timeout_secs" mapstructure:"scrape_timeout_secs"`
	AITimeoutSecs      int `yaml:"ai_timeout_secs" mapstructure:"ai_timeout_secs"`
	OverallTimeoutSecs int `yaml:"overall_timeout_secs" mapstructure:"overall_timeout_secs"`
}

// CacheConfig tunes the cache resolver.
type CacheConfig struct {
	Enabled             bool `yaml:"enabled" mapstructure:"enabled"`
	LivenessTimeoutSecs int  `yaml:"liveness_timeout_secs" mapstructure:"liveness_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	GroupSize        int     `yaml:"group_size" mapstructure:"group_size"`
	GroupDelaySecs   int     `yaml:"group_delay_secs" mapstructure:"group_delay_secs"`
	RetryBackoffSecs int     `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the HTTP extraction server. Tokens maps
// bearer tokens to the user IDs whose private cache tier they unlock.
type ServerConfig struct {
	Port   int               `yaml:"port" mapstructure:"port"`
	Tokens map[string]string `yaml:"tokens" mapstructure:"tokens"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScrapeTimeout returns the scrape timeout as a duration.
func (c ExtractConfig) ScrapeTimeout() time.Duration {
	return time.Duration(c.ScrapeTimeoutSecs) * time.Second
}

// AITimeout returns the AI extraction timeout as a duration.
func (c ExtractConfig) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSecs) * time.Second
}

// OverallTimeout returns the umbrella timeout as a duration.
func (c ExtractConfig) OverallTimeout() time.Duration {
	return time.Duration(c.OverallTimeoutSecs) * time.Second
}

// LivenessTimeout returns the image liveness probe timeout as a duration.
func (c CacheConfig) LivenessTimeout() time.Duration {
	return time.Duration(c.LivenessTimeoutSecs) * time.Second
}

// GroupDelay returns the base pause between batch groups as a duration.
func (c BatchConfig) GroupDelay() time.Duration {
	return time.Duration(c.GroupDelaySecs) * time.Second
}

// RetryBackoff returns the throttle retry backoff as a duration.
func (c BatchConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SEEDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "seedscan.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	// Credentials default empty so AutomaticEnv can see the keys.
	v.SetDefault("perplexity.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("rules.path", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("extract.scrape_timeout_secs", 8)
	v.SetDefault("extract.ai_timeout_secs", 20)
	v.SetDefault("extract.overall_timeout_secs", 25)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.liveness_timeout_secs", 5)
	v.SetDefault("batch.group_size", 3)
	v.SetDefault("batch.group_delay_secs", 2)
	v.SetDefault("batch.retry_backoff_secs", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient for the given
// mode. Modes: "extract" (single and batch runs), "serve", "migrate".
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "extract", "serve":
		check(c.Perplexity.Key != "", "perplexity.key is required")
		check(c.Anthropic.Key != "", "anthropic.key is required")
		check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
			"store.driver must be sqlite or postgres")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Batch.GroupSize >= 1 && c.Batch.GroupSize <= 10,
			"batch.group_size must be between 1 and 10")
		check(c.Extract.ScrapeTimeoutSecs > 0, "extract.scrape_timeout_secs must be > 0")
		check(c.Extract.AITimeoutSecs > 0, "extract.ai_timeout_secs must be > 0")
		check(c.Extract.OverallTimeoutSecs >= c.Extract.AITimeoutSecs,
			"extract.overall_timeout_secs must cover extract.ai_timeout_secs")
		if mode == "serve" {
			check(c.Server.Port > 0, "server.port must be > 0")
		}
	case "migrate":
		check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
			"store.driver must be sqlite or postgres")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
