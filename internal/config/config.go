package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Engine    EngineConfig
	Memory    MemoryConfig
	Retention RetentionConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama", "openai", etc
	LLMModel          string // e.g. "llama3", "qwen2.5"
	LLMTemperature    float64
	LLMMaxTokens      int
	EmbeddingProvider string
	OllamaBaseURL     string
	OllamaEmbedModel  string
}

// EngineConfig holds the policy-engine knobs: confidence thresholds and
// the character budgets of the hybrid retrieval query.
type EngineConfig struct {
	LowThreshold        float64
	HighThreshold       float64
	QueryMaxChars       int
	QuerySummaryChars   int
	QueryShortTermChars int
	TopKBlocks          int
	ExplicitAskPhrases  []string // overrides the built-in action-ask phrase list
}

type MemoryConfig struct {
	HistoryDepth      int
	MaxContextSize    int
	MaxTurns          int
	SummaryInterval   int
	SemanticEnabled   bool
	SemanticTopK      int
	SemanticMinScore  float64
	SemanticMaxChars  int
	SemanticSkipLastN int
}

type RetentionConfig struct {
	ActiveDays  int
	ArchiveDays int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "app.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMTemperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 1500),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Engine: EngineConfig{
			LowThreshold:        getEnvAsFloat("CONFIDENCE_LOW_THRESHOLD", 0.4),
			HighThreshold:       getEnvAsFloat("CONFIDENCE_HIGH_THRESHOLD", 0.75),
			QueryMaxChars:       getEnvAsInt("QUERY_MAX_CHARS", 2000),
			QuerySummaryChars:   getEnvAsInt("QUERY_SUMMARY_CHARS", 500),
			QueryShortTermChars: getEnvAsInt("QUERY_SHORT_TERM_CHARS", 700),
			TopKBlocks:          getEnvAsInt("TOP_K_BLOCKS", 5),
			ExplicitAskPhrases:  getEnvAsList("EXPLICIT_ASK_PHRASES"),
		},
		Memory: MemoryConfig{
			HistoryDepth:      getEnvAsInt("CONVERSATION_HISTORY_DEPTH", 3),
			MaxContextSize:    getEnvAsInt("MAX_CONTEXT_SIZE", 2000),
			MaxTurns:          getEnvAsInt("MAX_CONVERSATION_TURNS", 1000),
			SummaryInterval:   getEnvAsInt("SUMMARY_INTERVAL", 5),
			SemanticEnabled:   getEnvAsBool("ENABLE_SEMANTIC_MEMORY", true),
			SemanticTopK:      getEnvAsInt("SEMANTIC_SEARCH_TOP_K", 3),
			SemanticMinScore:  getEnvAsFloat("SEMANTIC_MIN_SIMILARITY", 0.7),
			SemanticMaxChars:  getEnvAsInt("SEMANTIC_MAX_CHARS", 1000),
			SemanticSkipLastN: getEnvAsInt("SEMANTIC_SKIP_LAST_N", 5),
		},
		Retention: RetentionConfig{
			ActiveDays:  getEnvAsInt("RETENTION_ACTIVE_DAYS", 90),
			ArchiveDays: getEnvAsInt("RETENTION_ARCHIVE_DAYS", 365),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
