package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD",
		"PERPLEXITY_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY",
		"LLM_BASE_URL", "LLM_MODEL", "LLM_MAX_TOKENS", "LLM_PROMPT_BUDGET",
		"SAMPLE_SIZE", "DATA_DIR", "PROCESSED_DIR", "OUTPUT_DIR",
		"ONTOLOGY_PATH", "REPORT_SOURCE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Neo4jUser)
	assert.Equal(t, "password", cfg.Neo4jPassword)
	assert.Equal(t, "sonar-pro", cfg.LLMModel)
	assert.Equal(t, 1500, cfg.LLMMaxTokens)
	assert.Equal(t, 0, cfg.LLMPromptBudget)
	assert.Equal(t, 100, cfg.SampleSize)
	assert.Equal(t, "data/raw", cfg.DataDir)
	assert.Equal(t, "data/processed", cfg.ProcessedDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "WA", cfg.ReportSource)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LLMAPIKey)
	assert.Empty(t, cfg.LLMProvider)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEO4J_URI", "neo4j://db.internal:7687")
	t.Setenv("SAMPLE_SIZE", "25")
	t.Setenv("LLM_MODEL", "sonar")
	t.Setenv("REPORT_SOURCE", "IL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j://db.internal:7687", cfg.Neo4jURI)
	assert.Equal(t, 25, cfg.SampleSize)
	assert.Equal(t, "sonar", cfg.LLMModel)
	assert.Equal(t, "IL", cfg.ReportSource)
}

func TestLoadProviderPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pplx-key", cfg.LLMAPIKey, "Perplexity key wins when several are set")
	assert.Equal(t, ProviderPerplexity, cfg.LLMProvider)
}

func TestLoadOpenRouterFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "or-key", cfg.LLMAPIKey)
	assert.Equal(t, ProviderOpenRouter, cfg.LLMProvider)
}

func TestLoadBadInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAMPLE_SIZE", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAMPLE_SIZE")
}

func TestRequireLLM(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireLLM())

	cfg.LLMAPIKey = "pplx-key"
	assert.NoError(t, cfg.RequireLLM())
}

func TestRequireNeo4j(t *testing.T) {
	cfg := &Config{Neo4jURI: "bolt://localhost:7687", Neo4jPassword: "password"}
	assert.NoError(t, cfg.RequireNeo4j())

	cfg.Neo4jPassword = ""
	assert.Error(t, cfg.RequireNeo4j())
}
