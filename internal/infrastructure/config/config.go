package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Providers   ProvidersConfig `mapstructure:"providers"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Store       StoreConfig     `mapstructure:"store"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig describes the application itself.
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ProvidersConfig groups the upstream recipe and image providers.
type ProvidersConfig struct {
	Spoonacular SpoonacularConfig `mapstructure:"spoonacular"`
	Generative  GenerativeConfig  `mapstructure:"generative"`
	Edamam      EdamamConfig      `mapstructure:"edamam"`
	Unsplash    UnsplashConfig    `mapstructure:"unsplash"`
	Retry       RetryConfig       `mapstructure:"retry"`
}

// SpoonacularConfig configures the structured recipe search provider.
type SpoonacularConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Results int           `mapstructure:"results"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GenerativeConfig configures the chat-completions recipe provider.
type GenerativeConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Recipes   int           `mapstructure:"recipes"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EdamamConfig configures the second structured recipe search provider.
type EdamamConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	AppID   string        `mapstructure:"app_id"`
	AppKey  string        `mapstructure:"app_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UnsplashConfig configures the image lookup provider.
type UnsplashConfig struct {
	AccessKey string        `mapstructure:"access_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RetryConfig bounds retries of transient upstream failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// CacheConfig selects and tunes the recipe cache backend.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"` // "memory" or "redis"
	RedisAddr string `mapstructure:"redis_addr"`
	// TTL of 0 keeps entries until process exit (memory) or forever (redis).
	TTL time.Duration `mapstructure:"ttl"`
}

// StoreConfig configures the persistent liked-recipes store.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig tunes image enrichment.
type ImageConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from .env and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional; environment variables may carry everything
		fmt.Println("Warning: .env file not found")
	}

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("providers.spoonacular.api_key", "SPOONACULAR_API_KEY")
	viper.BindEnv("providers.generative.api_key", "OPENAI_API_KEY")
	viper.BindEnv("providers.generative.model", "OPENAI_MODEL")
	viper.BindEnv("providers.edamam.app_id", "EDAMAM_APP_ID")
	viper.BindEnv("providers.edamam.app_key", "EDAMAM_APP_KEY")
	viper.BindEnv("providers.unsplash.access_key", "UNSPLASH_ACCESS_KEY")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.redis_addr", "CACHE_REDIS_ADDR")
	viper.BindEnv("store.enabled", "STORE_ENABLED")
	viper.BindEnv("store.dsn", "STORE_DSN")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	fmt.Println("Loading configuration",
		"spoonacular_api_key:", maskAPIKey(viper.GetString("providers.spoonacular.api_key")),
		"generative_model:", viper.GetString("providers.generative.model"),
	)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey shows only the first and last four characters of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-aggregator")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("providers.spoonacular.enabled", true)
	viper.SetDefault("providers.spoonacular.base_url", "https://api.spoonacular.com")
	viper.SetDefault("providers.spoonacular.results", 10)
	viper.SetDefault("providers.spoonacular.timeout", "30s")

	viper.SetDefault("providers.generative.enabled", true)
	viper.SetDefault("providers.generative.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.generative.model", "gpt-3.5-turbo-0125")
	viper.SetDefault("providers.generative.max_tokens", 2048)
	viper.SetDefault("providers.generative.recipes", 3)
	viper.SetDefault("providers.generative.timeout", "60s")

	viper.SetDefault("providers.edamam.enabled", true)
	viper.SetDefault("providers.edamam.base_url", "https://api.edamam.com")
	viper.SetDefault("providers.edamam.timeout", "30s")

	viper.SetDefault("providers.unsplash.base_url", "https://api.unsplash.com")
	viper.SetDefault("providers.unsplash.timeout", "3s")

	viper.SetDefault("providers.retry.max_attempts", 2)
	viper.SetDefault("providers.retry.wait_time", "500ms")
	viper.SetDefault("providers.retry.max_wait_time", "5s")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.ttl", "0")

	viper.SetDefault("store.enabled", false)
	viper.SetDefault("store.dsn", "")

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("image.workers", 5)
	viper.SetDefault("image.timeout", "3s")

	viper.SetDefault("dedup_window", "1s")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis cache backend requires an address")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
	}

	if config.Store.Enabled && config.Store.DSN == "" {
		return fmt.Errorf("store dsn is required when store is enabled")
	}

	if config.Image.Workers <= 0 {
		return fmt.Errorf("invalid image worker count")
	}
	if config.Providers.Retry.MaxAttempts < 0 {
		return fmt.Errorf("invalid retry max attempts")
	}

	return nil
}
