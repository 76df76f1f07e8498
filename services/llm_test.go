package services

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashgraph/crashgraph/pkg/config"
)

func TestClientConfigPerplexity(t *testing.T) {
	cfg := &config.Config{
		LLMProvider: config.ProviderPerplexity,
		LLMAPIKey:   "pplx-key",
	}

	clientConfig, err := clientConfigFor(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://api.perplexity.ai", clientConfig.BaseURL)
}

func TestClientConfigOpenRouter(t *testing.T) {
	cfg := &config.Config{
		LLMProvider: config.ProviderOpenRouter,
		LLMAPIKey:   "or-key",
	}

	clientConfig, err := clientConfigFor(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://openrouter.ai/api/v1", clientConfig.BaseURL)
	assert.Equal(t, "openrouter", clientConfig.OrgID)
}

func TestClientConfigOpenAIDefault(t *testing.T) {
	cfg := &config.Config{
		LLMProvider: config.ProviderOpenAI,
		LLMAPIKey:   "sk-key",
	}

	clientConfig, err := clientConfigFor(cfg)
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultConfig("sk-key").BaseURL, clientConfig.BaseURL)
}

func TestClientConfigExplicitBaseURL(t *testing.T) {
	cfg := &config.Config{
		LLMProvider: config.ProviderPerplexity,
		LLMAPIKey:   "pplx-key",
		LLMBaseURL:  "http://localhost:8080/v1",
	}

	clientConfig, err := clientConfigFor(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", clientConfig.BaseURL, "explicit base URL overrides the provider default")
}

func TestClientConfigMissingKey(t *testing.T) {
	_, err := clientConfigFor(&config.Config{})
	assert.Error(t, err)

	_, err = NewChatClient(&config.Config{})
	assert.Error(t, err)
}
