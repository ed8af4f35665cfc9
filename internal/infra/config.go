package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every runtime setting the service reads from the
// environment. Values are resolved once at startup.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	StoragePath    string
	StorageBaseURL string

	// UpstreamTimeout bounds a single provider call on the fast path.
	UpstreamTimeout time.Duration
	// BatchRequestDelay spaces consecutive upstream calls within one job.
	BatchRequestDelay time.Duration
	// BatchCompletionEstimate is the advertised worst-case job duration.
	BatchCompletionEstimate time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	RateLimitPerMin int
}

// LoadConfig reads configuration from the environment, applying defaults for
// everything except the values the service cannot run without.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		StoragePath:    getEnv("STORAGE_PATH", "./data/storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", ""),

		UpstreamTimeout:         getEnvSeconds("UPSTREAM_TIMEOUT_SECONDS", 90*time.Second),
		BatchRequestDelay:       getEnvSeconds("BATCH_REQUEST_DELAY_SECONDS", 2*time.Second),
		BatchCompletionEstimate: getEnvHours("BATCH_ETA_HOURS", 2*time.Hour),

		HTTPReadTimeout:  getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
		HTTPWriteTimeout: getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 120*time.Second),
		HTTPIdleTimeout:  getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", 60*time.Second),

		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if n := getEnvInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvHours(key string, fallback time.Duration) time.Duration {
	if n := getEnvInt(key, 0); n > 0 {
		return time.Duration(n) * time.Hour
	}
	return fallback
}
