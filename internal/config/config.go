package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"

	"github.com/helloml/agent-core/pkg/logger"
)

// Config holds all runtime configuration for the core service.
type Config struct {
	// HTTP server
	Port       string
	EnableCORS bool

	// Auth
	AuthSecret string

	// Rate limiting (requests per second per client, with burst)
	RateLimitRPS   float64
	RateLimitBurst int

	// Knowledge store chunking policy
	ChunkSize    int
	ChunkOverlap int

	// Embedding vector dimension (text-embedding-3-small)
	EmbeddingDim int

	// Embedding collaborator (OpenAI-compatible)
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbeddingModel string
}

var loadOnce sync.Once

// Load reads configuration from the environment, loading a local .env file
// first when one exists.
func Load() *Config {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			logger.Base().Debug("no .env file loaded, using environment")
		}
	})

	return &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		EnableCORS:     getEnvBoolOrDefault("ENABLE_CORS", true),
		AuthSecret:     getEnvOrDefault("AUTH_SECRET", ""),
		RateLimitRPS:   getEnvFloatOrDefault("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvIntOrDefault("RATE_LIMIT_BURST", 40),
		ChunkSize:      getEnvIntOrDefault("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvIntOrDefault("CHUNK_OVERLAP", 200),
		EmbeddingDim:   getEnvIntOrDefault("EMBEDDING_DIM", 1536),
		OpenAIAPIKey:   getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
	}
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault gets environment variable as int or returns default value
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloatOrDefault gets environment variable as float64 or returns default value
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault gets environment variable as bool or returns default value
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
