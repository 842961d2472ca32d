package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// Session store
	MaxHistoryLength int           // per-session message cap (FIFO trim)
	SessionTimeout   time.Duration // idle sessions older than this are swept
	SweepInterval    time.Duration // how often the sweep job runs

	// Completion provider (OpenAI-compatible)
	ProviderBaseURL  string
	ProviderAPIKey   string
	ProviderModel    string
	ProviderTimeout  time.Duration
	ProviderRate     float64 // upstream requests per second
	Temperature      float64
	MaxTokens        int

	// Files
	ExportDir       string
	PersonaFilePath string // optional YAML prompt-template overrides

	// Export document retention
	ExportTTL          time.Duration
	ExportCleanupEvery time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MaxHistoryLength: getIntEnv("SESSION_MAX_HISTORY", 50),
		SessionTimeout:   getDurationEnv("SESSION_TIMEOUT", 24*time.Hour),
		SweepInterval:    getDurationEnv("SESSION_SWEEP_INTERVAL", time.Hour),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://api.openai.com/v1"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		ProviderModel:   getEnv("PROVIDER_MODEL", "gpt-4o-mini"),
		ProviderTimeout: getDurationEnv("PROVIDER_TIMEOUT", 30*time.Second),
		ProviderRate:    getFloatEnv("PROVIDER_RATE_LIMIT", 5),
		Temperature:     getFloatEnv("PROVIDER_TEMPERATURE", 0.7),
		MaxTokens:       getIntEnv("PROVIDER_MAX_TOKENS", 2000),

		ExportDir:       getEnv("EXPORT_DIR", "./exports"),
		PersonaFilePath: getEnv("PERSONA_FILE", ""),

		ExportTTL:          getDurationEnv("EXPORT_TTL", 10*time.Minute),
		ExportCleanupEvery: getDurationEnv("EXPORT_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
