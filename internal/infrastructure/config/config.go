package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Placeholder keys shipped in example env files.
const (
	PlaceholderAPIKey    = "your_openrouter_api_key_here"
	PlaceholderOCRAPIKey = "your_ocr_space_api_key_here"
)

// Config is the application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	OpenRouter    OpenRouterConfig    `mapstructure:"openrouter"`
	OCR           OCRConfig           `mapstructure:"ocr"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	AI            AIConfig            `mapstructure:"ai"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Queue         QueueConfig         `mapstructure:"queue"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Image         ImageConfig         `mapstructure:"image"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Reference     ReferenceConfig     `mapstructure:"reference"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	DedupWindow   time.Duration       `mapstructure:"dedup_window"`
	LogLevel      string              `mapstructure:"log_level"`
	LogDir        string              `mapstructure:"log_dir"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// OpenRouterConfig configures the chat-completions collaborator.
type OpenRouterConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Referer     string        `mapstructure:"referer"`
	Title       string        `mapstructure:"title"`
}

// Available reports whether a usable API key is configured.
func (c OpenRouterConfig) Available() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// OCRConfig configures the OCR.space client.
type OCRConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Language string        `mapstructure:"language"`
	Engine   int           `mapstructure:"engine"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Available reports whether an OCR key is configured.
func (c OCRConfig) Available() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != PlaceholderOCRAPIKey
}

type OpenFoodFactsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// AIConfig controls how analyses use the model.
type AIConfig struct {
	// Mode is the default analysis mode: rules, auto or ai.
	Mode string `mapstructure:"mode"`
}

// CacheConfig is the in-memory model response cache.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig is the shared product lookup cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
}

// StorageConfig is the SQLite profile store. An empty path disables it.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ReferenceConfig points at an override for the embedded reference data.
type ReferenceConfig struct {
	Path string `mapstructure:"path"`
}

type AnalysisConfig struct {
	MinOCRTextLength int `mapstructure:"min_ocr_text_length"`
	MaxTextLength    int `mapstructure:"max_text_length"`
}

var envBindings = map[string]string{
	"app.env":                      "APP_ENV",
	"server.port":                  "PORT",
	"openrouter.api_key":           "OPENROUTER_API_KEY",
	"openrouter.model":             "OPENROUTER_MODEL",
	"openrouter.base_url":          "OPENROUTER_BASE_URL",
	"openrouter.max_tokens":        "MODEL_MAX_TOKENS",
	"ocr.api_key":                  "OCR_SPACE_API_KEY",
	"ocr.base_url":                 "OCR_SPACE_BASE_URL",
	"openfoodfacts.base_url":       "OPENFOODFACTS_BASE_URL",
	"ai.mode":                      "AI_MODE",
	"cache.enabled":                "CACHE_ENABLED",
	"redis.enabled":                "REDIS_ENABLED",
	"redis.addr":                   "REDIS_ADDR",
	"redis.password":               "REDIS_PASSWORD",
	"rate_limit.enabled":           "RATE_LIMIT_ENABLED",
	"rate_limit.requests":          "RATE_LIMIT_REQUESTS",
	"rate_limit.window":            "RATE_LIMIT_WINDOW",
	"storage.path":                 "STORAGE_PATH",
	"reference.path":               "REFERENCE_PATH",
	"analysis.min_ocr_text_length": "MIN_OCR_TEXT_LENGTH",
	"dedup_window":                 "DEDUP_WINDOW",
	"log_level":                    "LOG_LEVEL",
	"log_dir":                      "LOG_DIR",
}

// LoadConfig reads configuration from defaults, an optional .env file in
// the working directory and the environment, in increasing priority.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MaskAPIKey keeps the first and last four characters of key.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "label-checker")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "80s")
	v.SetDefault("server.max_body_bytes", 12*1024*1024)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("openrouter.model", "deepseek/deepseek-r1-0528:free")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.max_tokens", 2000)
	v.SetDefault("openrouter.temperature", 0.3)
	v.SetDefault("openrouter.timeout", "60s")
	v.SetDefault("openrouter.referer", "http://localhost:3000")
	v.SetDefault("openrouter.title", "Etiket Kontrol")

	v.SetDefault("ocr.base_url", "https://api.ocr.space")
	v.SetDefault("ocr.language", "tur")
	v.SetDefault("ocr.engine", 2)
	v.SetDefault("ocr.timeout", "30s")

	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.user_agent", "EtiketKontrol/1.0")
	v.SetDefault("openfoodfacts.timeout", "10s")
	v.SetDefault("openfoodfacts.cache_ttl", "24h")

	v.SetDefault("ai.mode", "auto")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "label-checker:")

	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_size", 100)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("image.max_size_bytes", 10*1024*1024)
	v.SetDefault("image.max_dimension", 2000)

	v.SetDefault("storage.path", "")
	v.SetDefault("reference.path", "")

	v.SetDefault("analysis.min_ocr_text_length", 10)
	v.SetDefault("analysis.max_text_length", 20000)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	switch config.AI.Mode {
	case "rules", "auto", "ai":
	default:
		return fmt.Errorf("invalid ai mode %q", config.AI.Mode)
	}

	if config.OpenRouter.Temperature < 0 || config.OpenRouter.Temperature > 2 {
		return fmt.Errorf("invalid openrouter temperature")
	}
	if config.OpenRouter.MaxTokens <= 0 {
		return fmt.Errorf("invalid openrouter max tokens")
	}

	if config.Analysis.MinOCRTextLength < 0 || config.Analysis.MaxTextLength <= 0 {
		return fmt.Errorf("invalid analysis text limits")
	}

	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}

	return nil
}
