package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port            string
	DataDir         string
	DashboardDir    string // Static dashboard front-end; empty disables serving
	AllowedOrigins  []string
	LogLevel        string
	Environment     string
	ExportToken     string
	ExportJWTSecret string // When set, export accepts HS256 JWTs instead of the static token
	RedisURL        string
	RateLimitPerMin int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DataDir:         getEnv("DATA_DIR", "data"),
		DashboardDir:    getEnv("DASHBOARD_DIR", ""),
		AllowedOrigins:  parseOrigins(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("ENVIRONMENT", "production"),
		ExportToken:     getEnv("EXPORT_TOKEN", "telemetry-export-2024"),
		ExportJWTSecret: getEnv("EXPORT_JWT_SECRET", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		RateLimitPerMin: getIntEnv("RATE_LIMIT_PER_MIN", 120),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
