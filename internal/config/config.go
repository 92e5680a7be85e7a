package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Storage layout: uploads and the persisted index both live under DataDir.
	DataDir     string
	MaxFileSize int64

	// Embeddings
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	VectorDimensions      int
	EmbedRPM              int

	// Sectionizer / ingestion thresholds
	MinSectionChars int
	MinSectionWords int
	MaxSectionChars int
	MaxHeadingChars int

	// Retrieval tuning
	SearchOverfetch  int
	MaxPerDocument   int
	SnippetSentences int
	SnippetMaxChars  int
	MinResultWords   int

	// Background rescans of the upload directory
	RescanInterval time.Duration

	// HTTP rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		DataDir:     getEnv("DATA_DIR", "./data"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB per upload

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),
		EmbedRPM:              getEnvInt("EMBED_RPM", 100),

		MinSectionChars: getEnvInt("MIN_SECTION_CHARS", 100),
		MinSectionWords: getEnvInt("MIN_SECTION_WORDS", 15),
		MaxSectionChars: getEnvInt("MAX_SECTION_CHARS", 2400),
		MaxHeadingChars: getEnvInt("MAX_HEADING_CHARS", 80),

		SearchOverfetch:  getEnvInt("SEARCH_OVERFETCH", 3),
		MaxPerDocument:   getEnvInt("MAX_PER_DOCUMENT", 2),
		SnippetSentences: getEnvInt("SNIPPET_SENTENCES", 4),
		SnippetMaxChars:  getEnvInt("SNIPPET_MAX_CHARS", 500),
		MinResultWords:   getEnvInt("MIN_RESULT_WORDS", 50),

		RescanInterval: getEnvDuration("RESCAN_INTERVAL", 15*time.Minute),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

// UploadDir is where raw PDFs land before and after indexing.
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// IndexDir holds the persisted metadata and vector index artifacts.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}

// EnsureDirs creates the storage layout on startup.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.UploadDir(), c.IndexDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
