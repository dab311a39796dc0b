package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// The values are loaded from environment variables.
type Config struct {
	// Core settings
	DatabasePath string
	LogLevel     string

	// Bank API settings
	BankAPIBaseURL string
	BankAPIToken   string
	BankClientID   string
	BankAccounts   []string
	BankBIC        string
	MaxPollAttempts int
	FetchWorkers    int

	// Embedding settings
	EmbeddingCachePath  string
	EmbeddingModel      string
	SimilarityThreshold float64
	GeminiAPIKey        string

	// Categorization data files
	CategoriesPath string
	LexiconPath    string
	ThesaurusPath  string
}

// Load reads configuration from environment variables, consulting a .env
// file first when one exists. Values that commands cannot run without are
// validated by the commands themselves, so Load never fails on absent keys.
func Load() *Config {
	// Best effort: absent .env just means plain OS environment.
	_ = godotenv.Load()

	return &Config{
		DatabasePath: getEnv("DATABASE_PATH", "./coindesk.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		BankAPIBaseURL:  getEnv("BANK_API_BASE_URL", "https://enter.tochka.com/uapi"),
		BankAPIToken:    getEnv("BANK_API_TOKEN", ""),
		BankClientID:    getEnv("BANK_CLIENT_ID", ""),
		BankAccounts:    getEnvAsSlice("BANK_ACCOUNTS"),
		BankBIC:         getEnv("BANK_BIC", ""),
		MaxPollAttempts: getEnvAsInt("BANK_STATEMENT_MAX_ATTEMPTS", 60),
		FetchWorkers:    getEnvAsInt("FETCH_WORKERS", 4),

		EmbeddingCachePath:  getEnv("EMBEDDING_CACHE_PATH", "./embedding_cache.db"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		SimilarityThreshold: getEnvAsFloat("EMBEDDING_SIMILARITY_THRESHOLD", 0.7),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),

		CategoriesPath: getEnv("CATEGORIES_PATH", "configs/categories.yaml"),
		LexiconPath:    getEnv("LEXICON_PATH", "configs/lexicon.txt"),
		ThesaurusPath:  getEnv("THESAURUS_PATH", "configs/thesaurus.yaml"),
	}
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsSlice retrieves a comma-separated environment variable as a
// trimmed string slice. Empty entries are dropped.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
