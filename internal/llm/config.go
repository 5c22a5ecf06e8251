// Package llm provides the provider-neutral LLM boundary used by the extraction and aggregation engines.
// A Client sends a system prompt and user content to a model and returns free text.
package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderDeepSeek is the DeepSeek OpenAI-compatible chat API
	ProviderDeepSeek Provider = "deepseek"
	// ProviderOpenAI is the OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

const (
	defaultTimeout    = 10 * time.Minute
	defaultMaxRetries = 3
)

// Config holds provider connection settings and the default model pair
type Config struct {
	Provider        Provider
	BaseURL         string // Only used by OpenAI-compatible providers
	IndividualModel string // Default model for per-report extraction
	AggregateModel  string // Default model for the organization review
	Timeout         time.Duration
	MaxRetries      int
}

// DefaultConfig returns the default configuration (DeepSeek)
func DefaultConfig() *Config {
	return DefaultConfigFor(ProviderDeepSeek)
}

// DefaultConfigFor returns the default configuration for a provider
func DefaultConfigFor(provider Provider) *Config {
	cfg := &Config{
		Provider:   provider,
		Timeout:    defaultTimeout,
		MaxRetries: defaultMaxRetries,
	}
	switch provider {
	case ProviderGemini:
		cfg.IndividualModel = "gemini-2.5-flash"
		cfg.AggregateModel = "gemini-2.5-pro"
	case ProviderOpenAI:
		cfg.BaseURL = "https://api.openai.com/v1"
		cfg.IndividualModel = "gpt-4o-mini"
		cfg.AggregateModel = "gpt-4o"
	default:
		cfg.Provider = ProviderDeepSeek
		cfg.BaseURL = "https://api.deepseek.com"
		cfg.IndividualModel = "deepseek-chat"
		cfg.AggregateModel = "deepseek-reasoner"
	}
	return cfg
}

// ParseProvider maps a provider name onto a known Provider
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderDeepSeek, ProviderOpenAI, ProviderGemini:
		return p, nil
	case "google":
		return ProviderGemini, nil
	case "":
		return ProviderDeepSeek, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", name)
	}
}

// APIKeyEnv returns the environment variable holding the provider's API key
func APIKeyEnv(provider Provider) string {
	switch provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "DEEPSEEK_API_KEY"
	}
}
