package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	StoragePath      string
	PublicDomain     string
	GeoIPDBPath      string
	VisionAPIKey     string
	VisionModel      string
	VisionBaseURL    string
	InternalAPIKey   string
	CronSecret       string
	SelfBaseURL      string
	DefaultLocale    string
	AllowedOrigins   []string
	FetchTimeout     time.Duration
	InferenceTimeout time.Duration
	RetentionWindow  time.Duration
	RedispatchAfter  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		PublicDomain:     getEnv("PUBLIC_DOMAIN", "http://localhost:8080/static"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		VisionAPIKey:     os.Getenv("VISION_API_KEY"),
		VisionModel:      getEnv("VISION_MODEL", "zai-org/GLM-4.6V"),
		VisionBaseURL:    getEnv("VISION_BASE_URL", "https://api.siliconflow.cn/v1"),
		InternalAPIKey:   os.Getenv("INTERNAL_API_KEY"),
		CronSecret:       os.Getenv("CRON_SECRET"),
		SelfBaseURL:      getEnv("SELF_BASE_URL", "http://localhost:8080"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		FetchTimeout:     time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)),
		InferenceTimeout: time.Second * time.Duration(getEnvInt("INFERENCE_TIMEOUT_SECONDS", 120)),
		RetentionWindow:  time.Hour * time.Duration(getEnvInt("CLEANUP_RETENTION_HOURS", 24)),
		RedispatchAfter:  time.Minute * time.Duration(getEnvInt("REDISPATCH_AFTER_MINUTES", 10)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
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
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
