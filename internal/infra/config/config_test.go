package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_PipelineParameters_Defaults(t *testing.T) {
	envVars := []string{
		"RRF_K",
		"SEARCH_LIMIT",
		"FUSION_TOP_K",
		"RERANK_TOP_N",
		"RERANK_ENABLED",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 60.0, cfg.RRFK, "rrfK should default to 60.0")
	assert.Equal(t, 20, cfg.SearchLimit)
	assert.Equal(t, 10, cfg.FusionTopK)
	assert.Equal(t, 5, cfg.RerankTopN)
	assert.True(t, cfg.RerankEnabled)
}

func TestLoad_PipelineParameters_FromEnv(t *testing.T) {
	t.Setenv("RRF_K", "30.5")
	t.Setenv("SEARCH_LIMIT", "50")
	t.Setenv("FUSION_TOP_K", "15")
	t.Setenv("RERANK_TOP_N", "8")
	t.Setenv("RERANK_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, 30.5, cfg.RRFK)
	assert.Equal(t, 50, cfg.SearchLimit)
	assert.Equal(t, 15, cfg.FusionTopK)
	assert.Equal(t, 8, cfg.RerankTopN)
	assert.False(t, cfg.RerankEnabled)
}

func TestLoad_GenerationParameters_Defaults(t *testing.T) {
	for _, key := range []string{"GENERATION_MAX_TOKENS", "CONTEXT_MAX_CHARS", "ANSWER_CACHE_SIZE"} {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 512, cfg.GenerationMaxTokens)
	assert.Equal(t, 2000, cfg.ContextMaxChars)
	assert.Equal(t, 256, cfg.AnswerCacheSize)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SEARCH_LIMIT", "not-a-number")
	t.Setenv("RRF_K", "also-not")

	cfg := Load()

	assert.Equal(t, 20, cfg.SearchLimit)
	assert.Equal(t, 60.0, cfg.RRFK)
}

func TestLoad_SecretFromFile(t *testing.T) {
	f := t.TempDir() + "/db_password"
	if err := os.WriteFile(f, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_ = os.Unsetenv("DB_PASSWORD")
	t.Setenv("DB_PASSWORD_FILE", f)

	cfg := Load()

	assert.Equal(t, "s3cret", cfg.DBPassword)
}

func TestConfig_DSN(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_NAME", "d")

	cfg := Load()

	assert.Equal(t, "postgres://u:p@localhost:5433/d", cfg.DSN())
}
