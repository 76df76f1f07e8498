package services

import (
	"github.com/sashabaranov/go-openai"

	"github.com/crashgraph/crashgraph/pkg/config"
)

// Base URLs for the supported OpenAI-compatible providers.
const (
	perplexityBaseURL = "https://api.perplexity.ai"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// NewChatClient builds a chat client for the configured provider. An
// explicit LLM_BASE_URL always wins; otherwise the provider that supplied
// the API key picks the endpoint.
func NewChatClient(cfg *config.Config) (*openai.Client, error) {
	clientConfig, err := clientConfigFor(cfg)
	if err != nil {
		return nil, err
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

func clientConfigFor(cfg *config.Config) (openai.ClientConfig, error) {
	if err := cfg.RequireLLM(); err != nil {
		return openai.ClientConfig{}, err
	}

	clientConfig := openai.DefaultConfig(cfg.LLMAPIKey)

	switch {
	case cfg.LLMBaseURL != "":
		clientConfig.BaseURL = cfg.LLMBaseURL
	case cfg.LLMProvider == config.ProviderPerplexity:
		clientConfig.BaseURL = perplexityBaseURL
	case cfg.LLMProvider == config.ProviderOpenRouter:
		clientConfig.BaseURL = openRouterBaseURL
		clientConfig.OrgID = "openrouter"
	}

	return clientConfig, nil
}
