package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// LLM provider names, in the order keys are probed.
const (
	ProviderPerplexity = "perplexity"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Config carries everything the binaries need from the environment.
type Config struct {
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	LLMProvider     string
	LLMAPIKey       string
	LLMBaseURL      string
	LLMModel        string
	LLMMaxTokens    int
	LLMPromptBudget int

	SampleSize   int
	DataDir      string
	ProcessedDir string
	OutputDir    string
	OntologyPath string
	ReportSource string
	LogLevel     string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. Load a .env file (godotenv) before calling this if one
// should take part.
func Load() (*Config, error) {
	cfg := &Config{
		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),
		LLMBaseURL:    os.Getenv("LLM_BASE_URL"),
		LLMModel:      getEnv("LLM_MODEL", "sonar-pro"),
		DataDir:       getEnv("DATA_DIR", "data/raw"),
		ProcessedDir:  getEnv("PROCESSED_DIR", "data/processed"),
		OutputDir:     getEnv("OUTPUT_DIR", "output"),
		OntologyPath:  os.Getenv("ONTOLOGY_PATH"),
		ReportSource:  getEnv("REPORT_SOURCE", "WA"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	// First configured key wins: Perplexity is the primary provider, the
	// others are drop-in OpenAI-compatible fallbacks.
	providers := []struct {
		envKey string
		name   string
	}{
		{"PERPLEXITY_API_KEY", ProviderPerplexity},
		{"OPENROUTER_API_KEY", ProviderOpenRouter},
		{"OPENAI_API_KEY", ProviderOpenAI},
	}
	for _, p := range providers {
		if key := os.Getenv(p.envKey); key != "" {
			cfg.LLMAPIKey = key
			cfg.LLMProvider = p.name
			break
		}
	}

	var err error
	if cfg.LLMMaxTokens, err = getEnvInt("LLM_MAX_TOKENS", 1500); err != nil {
		return nil, err
	}
	if cfg.LLMPromptBudget, err = getEnvInt("LLM_PROMPT_BUDGET", 0); err != nil {
		return nil, err
	}
	if cfg.SampleSize, err = getEnvInt("SAMPLE_SIZE", 100); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireLLM reports whether the llm pipeline can run with this
// configuration.
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return errors.New("no LLM API key configured (set PERPLEXITY_API_KEY, OPENROUTER_API_KEY or OPENAI_API_KEY)")
	}
	return nil
}

// RequireNeo4j reports whether graph uploads can run with this
// configuration.
func (c *Config) RequireNeo4j() error {
	if c.Neo4jURI == "" || c.Neo4jPassword == "" {
		return errors.New("neo4j credentials missing (set NEO4J_URI and NEO4J_PASSWORD)")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return parsed, nil
}
