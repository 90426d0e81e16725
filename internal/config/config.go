package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Backend   BackendConfig   `yaml:"backend" mapstructure:"backend"`
	Relays    []RelayConfig   `yaml:"relays" mapstructure:"relays"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Store     store.Config    `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Outreach  OutreachConfig  `yaml:"outreach" mapstructure:"outreach"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PlacesConfig configures the places search provider.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Engine  string `yaml:"engine" mapstructure:"engine"`
}

// AnthropicConfig configures the query interpreter's LLM.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BackendConfig points at the first-party search backend. An empty URL
// means searches go straight to the relays.
type BackendConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RelayConfig is one fallback channel. Template contains "{url}".
type RelayConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Template string `yaml:"template" mapstructure:"template"`
}

// EnrichConfig configures contact email lookups.
type EnrichConfig struct {
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMins int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig configures the HTTP backend.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int      `yaml:"burst" mapstructure:"burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`

	// Provider call guard.
	RetryAttempts    int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// OutreachConfig fills the sender of drafted messages.
type OutreachConfig struct {
	SenderName string `yaml:"sender_name" mapstructure:"sender_name"`
	Agency     string `yaml:"agency" mapstructure:"agency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A .env file only fills variables that are not already set.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, eris.Wrap(err, "config: load .env")
		}
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIZFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys that only come from the environment must be bound to be seen by
	// Unmarshal.
	for _, key := range []string{
		"places.key", "anthropic.key", "backend.url",
		"store.database_url", "store.redis_addr",
		"enrich.user_agent", "outreach.sender_name", "outreach.agency",
	} {
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("places.base_url", "https://serpapi.com")
	v.SetDefault("places.engine", "google_maps")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("backend.timeout_secs", 20)
	v.SetDefault("enrich.timeout_secs", 3)
	v.SetDefault("enrich.cache_ttl_mins", 60)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.path", "bizfinder.db")
	v.SetDefault("store.redis_prefix", store.DefaultRedisPrefix)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.retry_attempts", 2)
	v.SetDefault("server.breaker_threshold", 5)
	v.SetDefault("server.breaker_reset_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. Missing keys are not errors
// for search: the app degrades to demo data instead.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "", store.DriverSQLite:
		if mode != "search" && c.Store.Path == "" {
			errs = append(errs, "store.path is required for sqlite")
		}
	case store.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	case store.DriverRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, "store.redis_addr is required for redis")
		}
	default:
		errs = append(errs, "store.driver must be sqlite, postgres or redis")
	}

	for i, r := range c.Relays {
		if !strings.Contains(r.Template, "{url}") {
			errs = append(errs, fmt.Sprintf("relays[%d].template must contain {url}", i))
		}
	}

	if c.Enrich.TimeoutSecs <= 0 {
		errs = append(errs, "enrich.timeout_secs must be positive")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Places.Key == "" {
			errs = append(errs, "places.key is required")
		}
		if c.Server.RateLimit <= 0 {
			errs = append(errs, "server.rate_limit must be positive")
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
