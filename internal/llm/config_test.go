package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderDeepSeek, config.Provider)
	assert.Equal(t, "https://api.deepseek.com", config.BaseURL)
	assert.Equal(t, "deepseek-chat", config.IndividualModel)
	assert.Equal(t, "deepseek-reasoner", config.AggregateModel)
	assert.Equal(t, 10*time.Minute, config.Timeout)
	assert.Equal(t, 3, config.MaxRetries)
}

func TestDefaultConfigFor(t *testing.T) {
	gemini := DefaultConfigFor(ProviderGemini)
	assert.Equal(t, ProviderGemini, gemini.Provider)
	assert.Empty(t, gemini.BaseURL)
	assert.Equal(t, "gemini-2.5-flash", gemini.IndividualModel)
	assert.Equal(t, "gemini-2.5-pro", gemini.AggregateModel)

	openai := DefaultConfigFor(ProviderOpenAI)
	assert.Equal(t, "https://api.openai.com/v1", openai.BaseURL)
	assert.Equal(t, "gpt-4o-mini", openai.IndividualModel)

	unknown := DefaultConfigFor("mystery")
	assert.Equal(t, ProviderDeepSeek, unknown.Provider)
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{input: "deepseek", want: ProviderDeepSeek},
		{input: " OpenAI ", want: ProviderOpenAI},
		{input: "gemini", want: ProviderGemini},
		{input: "google", want: ProviderGemini},
		{input: "", want: ProviderDeepSeek},
		{input: "anthropic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIKeyEnv(t *testing.T) {
	assert.Equal(t, "DEEPSEEK_API_KEY", APIKeyEnv(ProviderDeepSeek))
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnv(ProviderOpenAI))
	assert.Equal(t, "GEMINI_API_KEY", APIKeyEnv(ProviderGemini))
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(t.Context(), &Config{Provider: "mystery"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}
