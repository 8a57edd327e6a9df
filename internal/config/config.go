package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential means neither a Gemini API key nor a parameter path
// to fetch one from is configured.
var ErrMissingCredential = errors.New("GEMINI_API_KEY or GEMINI_API_KEY_PARAM is required")

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	AppEnv            string
	LogLevel          string
	Port              string
	GeminiAPIKey      string
	GeminiAPIKeyParam string
	GeminiModel       string
	GeminiBaseURL     string
	GenerationTimeout time.Duration
	StylesParam       string
	Bucket            string
	Distribution      string
	SiteURL           string
	ExportDir         string
	MaxUploadBytes    int64
	SessionIdle       time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnv("PORT", "8080"),
		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiAPIKeyParam: strings.TrimSpace(os.Getenv("GEMINI_API_KEY_PARAM")),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/"),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 120)),
		StylesParam:       os.Getenv("STYLES_PARAM"),
		Bucket:            os.Getenv("BUCKET"),
		Distribution:      os.Getenv("DISTRIBUTION"),
		SiteURL:           strings.TrimRight(getEnv("SITE_URL", "https://decorai.app"), "/"),
		ExportDir:         getEnv("EXPORT_DIR", "exports"),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		SessionIdle:       time.Minute * time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 30)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.GeminiAPIKey == "" && cfg.GeminiAPIKeyParam == "" {
		return nil, ErrMissingCredential
	}
	return cfg, nil
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
