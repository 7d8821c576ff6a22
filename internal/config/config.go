package config

import (
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/wedding-os/client/pkg/config"
)

// Storage backends understood by STORAGE_BACKEND.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds the runtime configuration for weddingctl and the client packages.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	APIBaseURL     string
	RequestTimeout time.Duration
	RetryMax       int
	RateLimitRPS   int
	RateLimitBurst int

	ToastsEnabled bool
	ToastDuration time.Duration
	ToastGap      time.Duration

	StorageBackend string
	StoragePath    string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	RedisPrefix    string

	// Login credentials for non-interactive use live in AWS Secrets Manager
	// under {env}/{profile}/weddingos. See internal/secrets.
	AWSRegion string

	MetricsAddr string

	ThreeDPollInterval time.Duration
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:        pkgconfig.GetEnv("SERVICE_NAME", "weddingctl"),
		Env:                pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:           pkgconfig.GetEnv("LOG_LEVEL", "warn"),
		APIBaseURL:         pkgconfig.GetEnv("API_BASE_URL", "http://localhost:8101/api"),
		RequestTimeout:     pkgconfig.GetEnvDuration("REQUEST_TIMEOUT", 10*time.Minute),
		RetryMax:           pkgconfig.GetEnvInt("REQUEST_RETRY_MAX", 0),
		RateLimitRPS:       pkgconfig.GetEnvInt("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     pkgconfig.GetEnvInt("RATE_LIMIT_BURST", 5),
		ToastsEnabled:      pkgconfig.GetEnvBool("TOASTS_ENABLED", true),
		ToastDuration:      pkgconfig.GetEnvDuration("TOAST_DURATION", 3*time.Second),
		ToastGap:           pkgconfig.GetEnvDuration("TOAST_GAP", 250*time.Millisecond),
		StorageBackend:     pkgconfig.GetEnv("STORAGE_BACKEND", StorageFile),
		StoragePath:        pkgconfig.ExpandHome(pkgconfig.GetEnv("STORAGE_PATH", "~/.config/weddingos/storage.json")),
		RedisAddr:          pkgconfig.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            pkgconfig.GetEnvInt("REDIS_DB", 0),
		RedisPass:          pkgconfig.GetEnv("REDIS_PASS", ""),
		RedisPrefix:        pkgconfig.GetEnv("REDIS_PREFIX", "weddingos:"),
		AWSRegion:          pkgconfig.GetEnv("AWS_REGION", "ap-northeast-2"),
		MetricsAddr:        pkgconfig.GetEnv("METRICS_ADDR", ""),
		ThreeDPollInterval: pkgconfig.GetEnvDuration("THREED_POLL_INTERVAL", 5*time.Second),
	}
}
