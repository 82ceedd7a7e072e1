package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	LLMServerURL   string
	EmbeddingModel string
	GenerationMdl  string

	SearchIndexURL        string
	SearchTimeoutSeconds  int
	RerankerURL           string
	RerankerModel         string
	RerankEnabled         bool
	RerankTimeoutSeconds  int
	RetrieverTimeoutSecs  int
	RRFK                  float64
	SearchLimit           int
	FusionTopK            int
	RerankTopN            int
	GenerationMaxTokens   int
	ContextMaxChars       int
	AnswerCacheSize       int
	AnswerCacheTTLMinutes int
	AskRateLimitRPS       float64
	AskRateLimitBurst     int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9300"),

		DBHost:     getEnv("DB_HOST", "docs-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "docs_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "docs_password"),
		DBName:     getEnv("DB_NAME", "docs_db"),

		LLMServerURL:   getEnv("LLM_SERVER_URL", "http://llm-server:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		GenerationMdl:  getEnv("GENERATION_MODEL", "gemma3:4b"),

		SearchIndexURL:        getEnv("SEARCH_INDEX_URL", "http://search-index:9200"),
		SearchTimeoutSeconds:  getEnvInt("SEARCH_TIMEOUT_SECONDS", 5),
		RerankerURL:           getEnv("RERANKER_URL", "http://reranker:8001"),
		RerankerModel:         getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
		RerankEnabled:         getEnvBool("RERANK_ENABLED", true),
		RerankTimeoutSeconds:  getEnvInt("RERANK_TIMEOUT_SECONDS", 8),
		RetrieverTimeoutSecs:  getEnvInt("RETRIEVER_TIMEOUT_SECONDS", 5),
		RRFK:                  getEnvFloat("RRF_K", 60),
		SearchLimit:           getEnvInt("SEARCH_LIMIT", 20),
		FusionTopK:            getEnvInt("FUSION_TOP_K", 10),
		RerankTopN:            getEnvInt("RERANK_TOP_N", 5),
		GenerationMaxTokens:   getEnvInt("GENERATION_MAX_TOKENS", 512),
		ContextMaxChars:       getEnvInt("CONTEXT_MAX_CHARS", 2000),
		AnswerCacheSize:       getEnvInt("ANSWER_CACHE_SIZE", 256),
		AnswerCacheTTLMinutes: getEnvInt("ANSWER_CACHE_TTL_MINUTES", 60),
		AskRateLimitRPS:       getEnvFloat("ASK_RATE_LIMIT_RPS", 4),
		AskRateLimitBurst:     getEnvInt("ASK_RATE_LIMIT_BURST", 8),
	}
}

// DSN assembles the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	// Docker secrets style: the variable points at a mounted file.
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
