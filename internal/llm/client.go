package llm

import (
	"context"
	"fmt"
)

// Request is a single call to a model
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float64
	MaxTokens    int // Zero leaves the provider default in place
}

// Client is an abstraction over LLM providers
type Client interface {
	// Complete sends the request and returns the model's text response
	Complete(ctx context.Context, req Request) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderDeepSeek, ProviderOpenAI:
		return NewChatClient(config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}
