// Package config loads application settings from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/salary-insights/internal/llm"
)

// EnvPrefix prefixes every environment override, e.g. SALARY_SERVER_PORT.
const EnvPrefix = "SALARY"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	LLM       llm.Config      `yaml:"llm" mapstructure:"llm"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures where the compensation table lives.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Table       string `yaml:"table" mapstructure:"table"`
	OrderBy     string `yaml:"order_by" mapstructure:"order_by"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int    `yaml:"port" mapstructure:"port"`
	AllowedOrigin string `yaml:"allowed_origin" mapstructure:"allowed_origin"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DefaultLimit    int           `yaml:"default_limit" mapstructure:"default_limit"`
	DefaultWindow   time.Duration `yaml:"default_window" mapstructure:"default_window"`
	ChatLimit       int           `yaml:"chat_limit" mapstructure:"chat_limit"`
	ChatWindow      time.Duration `yaml:"chat_window" mapstructure:"chat_window"`
	ChatBurst       int           `yaml:"chat_burst" mapstructure:"chat_burst"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	Whitelist       []string      `yaml:"whitelist" mapstructure:"whitelist"`
	Blacklist       []string      `yaml:"blacklist" mapstructure:"blacklist"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by deployments; SALARY_STORE_DATABASE_URL takes precedence.
	_ = v.BindEnv("store.database_url", EnvPrefix+"_STORE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("keys.gemini", "GEMINI_API_KEY")
	_ = v.BindEnv("keys.anthropic", "ANTHROPIC_API_KEY")

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.sqlite_path", "salary.db")
	v.SetDefault("store.table", "job_e")
	v.SetDefault("store.page_size", 1000)
	v.SetDefault("store.order_by", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.provider", string(llm.ProviderGemini))
	v.SetDefault("llm.temperature", 0)
	v.SetDefault("llm.top_k", 1)
	v.SetDefault("llm.top_p", 1)
	v.SetDefault("llm.max_output_tokens", llm.DefaultMaxOutputTokens)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 1000)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.chat_limit", 30)
	v.SetDefault("rate_limit.chat_window", time.Minute)
	v.SetDefault("rate_limit.chat_burst", 5)
	v.SetDefault("rate_limit.cleanup_interval", 5*time.Minute)
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("rate_limit.blacklist", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v.GetString("keys." + string(cfg.LLM.Provider))
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. command is one of
// serve, summary, ask, chat or import.
func (c *Config) Validate(command string) error {
	var errs []string

	switch c.Store.Driver {
	case DriverPostgres:
		if command != "chat" && c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver (DATABASE_URL)")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Store.Driver))
	}
	if c.Store.PageSize <= 0 {
		errs = append(errs, "store.page_size must be positive")
	}

	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if command == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port must be in [1, 65535], got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
