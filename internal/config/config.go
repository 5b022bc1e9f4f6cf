package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	SessionSecret string
	LogLevel      string

	// Database
	DatabaseURL string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Trust
	ContributorThreshold int
	TrustQueueSize       int
	TrustFlushInterval   time.Duration

	// AI content generation
	LLMBaseURL string
	LLMToken   string
	LLMModel   string
	LLMTimeout time.Duration
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, bool) {
	envFileFound := godotenv.Load() == nil

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		SessionSecret:        getEnv("SESSION_SECRET", "secret_key_change_me"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=agora port=5432 sslmode=disable"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		TokenTTL:             getEnvDuration("TOKEN_TTL", 24*time.Hour),
		ContributorThreshold: getEnvInt("CONTRIBUTOR_THRESHOLD", 50),
		TrustQueueSize:       getEnvInt("TRUST_QUEUE_SIZE", 1000),
		TrustFlushInterval:   getEnvDuration("TRUST_FLUSH_INTERVAL", 500*time.Millisecond),
		LLMBaseURL:           getEnv("LLM_BASE_URL", ""),
		LLMToken:             getEnv("LLM_TOKEN", ""),
		LLMModel:             getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:           getEnvDuration("LLM_TIMEOUT", 60*time.Second),
	}, envFileFound
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
