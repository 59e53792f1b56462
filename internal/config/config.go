package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	DBPath             string
	QdrantURL          string
	QdrantCollection   string
	QdrantVectorSize   int
	RedisAddr          string
	RedisScoreTTL      time.Duration
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string

	// Reranker tuning. The threshold ladder constants were arrived at
	// empirically, so they live in configuration rather than code.
	RerankMinScore        float64
	RerankRelaxDelta      float64
	RerankFloorScore      float64
	RerankLastResortScore float64
	MaxCitations          int
	RetrievalMultiplier   int
	// MaxEvidenceLevel is the worst acceptable evidence level (1 = highest
	// quality, 5 = lowest); passages rated above it are excluded from search.
	MaxEvidenceLevel int
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/medassist-ai.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "evidence"),
		RedisAddr:          getEnv("REDIS_ADDR", ""), // Empty disables the relevance score cache
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	// Parse QDRANT_VECTOR_SIZE
	// Note: This must match the output vector size of the embeddings model.
	// If the vector size changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	scoreTTLSeconds, err := getEnvInt("REDIS_SCORE_TTL_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	cfg.RedisScoreTTL = time.Duration(scoreTTLSeconds) * time.Second

	if cfg.RerankMinScore, err = getEnvFloat("RERANK_MIN_SCORE", 0.75); err != nil {
		return nil, err
	}
	if cfg.RerankRelaxDelta, err = getEnvFloat("RERANK_RELAX_DELTA", 0.2); err != nil {
		return nil, err
	}
	if cfg.RerankFloorScore, err = getEnvFloat("RERANK_FLOOR_SCORE", 0.4); err != nil {
		return nil, err
	}
	if cfg.RerankLastResortScore, err = getEnvFloat("RERANK_LAST_RESORT_SCORE", 0.3); err != nil {
		return nil, err
	}
	if cfg.MaxCitations, err = getEnvInt("MAX_CITATIONS", 8); err != nil {
		return nil, err
	}
	if cfg.RetrievalMultiplier, err = getEnvInt("RETRIEVAL_MULTIPLIER", 3); err != nil {
		return nil, err
	}
	if cfg.MaxEvidenceLevel, err = getEnvInt("MAX_EVIDENCE_LEVEL", 5); err != nil {
		return nil, err
	}

	if cfg.RerankMinScore < 0 || cfg.RerankMinScore > 1 {
		return nil, fmt.Errorf("RERANK_MIN_SCORE must be in [0,1]")
	}
	if cfg.MaxCitations <= 0 {
		return nil, fmt.Errorf("MAX_CITATIONS must be greater than 0")
	}
	if cfg.RetrievalMultiplier < 1 {
		return nil, fmt.Errorf("RETRIEVAL_MULTIPLIER must be at least 1")
	}
	if cfg.MaxEvidenceLevel < 1 || cfg.MaxEvidenceLevel > 5 {
		return nil, fmt.Errorf("MAX_EVIDENCE_LEVEL must be in [1,5]")
	}

	// Create ./data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

// getEnvFloat gets a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}

// parseLogLevel converts a level name to a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
