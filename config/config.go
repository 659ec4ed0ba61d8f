// Package config provides configuration loading for the flowcanvas server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the flowcanvas server.
type Config struct {
	// Server configuration
	Port          string
	ShutdownGrace time.Duration
	CORSOrigins   []string

	// Workflow store: "memory" or "postgres"
	StoreType   string
	DatabaseURL string

	// Conversation history: "file" or "redis"
	ConversationStore string
	ConversationDir   string
	RedisURL          string

	// Backend services
	WorkflowBackendURL string
	InsightBackendURL  string
	BackendTimeout     time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		ShutdownGrace: getDuration("SHUTDOWN_GRACE", 10*time.Second),
		CORSOrigins:   getStringSlice("CORS_ORIGINS", []string{"http://localhost:5173"}),

		StoreType:   getEnv("FLOWCANVAS_STORE", "memory"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		ConversationStore: getEnv("CONVERSATION_STORE", "file"),
		ConversationDir:   getEnv("CONVERSATION_DIR", "."),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),

		WorkflowBackendURL: getEnv("WORKFLOW_BACKEND_URL", "http://localhost:8000/api/v1"),
		InsightBackendURL:  getEnv("INSIGHT_BACKEND_URL", "http://localhost:8000/api/v1"),
		BackendTimeout:     getDuration("BACKEND_TIMEOUT", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultVal
}
