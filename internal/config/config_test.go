package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"input_root": "reports",
		"output_root": "out",
		"provider": "gemini",
		"temperature": 0.7,
		"workers": 4,
		"role_precedence": "heuristic",
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "reports", cfg.InputRoot)
	assert.Equal(t, "out", cfg.OutputRoot)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "heuristic", cfg.RolePrecedence)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	inputDir := t.TempDir()
	notADir := filepath.Join(inputDir, "file.txt")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "existing input root", cfg: Config{InputRoot: inputDir, Temperature: 1.3}},
		{name: "zero temperature", cfg: Config{Temperature: 0}},
		{name: "temperature too high", cfg: Config{Temperature: 2.5}, wantErr: "'temperature' failed lte"},
		{name: "negative workers", cfg: Config{Workers: -1}, wantErr: "'workers' failed gte"},
		{name: "negative max tokens", cfg: Config{AggregateMaxTokens: -5}, wantErr: "'aggregate_max_tokens' failed gte"},
		{name: "unknown provider", cfg: Config{Provider: "anthropic"}, wantErr: "'provider' failed oneof"},
		{name: "unknown precedence", cfg: Config{RolePrecedence: "both"}, wantErr: "'role_precedence' failed oneof"},
		{name: "bad base url", cfg: Config{BaseURL: "not a url"}, wantErr: "'base_url' failed url"},
		{name: "missing input root", cfg: Config{InputRoot: filepath.Join(inputDir, "missing")}, wantErr: "input root not found"},
		{name: "input root is a file", cfg: Config{InputRoot: notADir}, wantErr: "not a directory"},
		{name: "missing prompts dir", cfg: Config{PromptsDir: filepath.Join(inputDir, "prompts")}, wantErr: "prompts directory not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		InputRoot:   "reports",
		Provider:    "gemini",
		Temperature: 0.5,
		Workers:     8,
	}

	merged := partial.MergeWithDefaults(Defaults())

	// Custom values should be preserved
	assert.Equal(t, "reports", merged.InputRoot)
	assert.Equal(t, "gemini", merged.Provider)
	assert.InDelta(t, 0.5, merged.Temperature, 1e-9)
	assert.Equal(t, 8, merged.Workers)

	// Default values should fill in empty fields
	assert.Equal(t, DefaultOutputRoot, merged.OutputRoot)
	assert.Equal(t, DefaultIndividualMaxTokens, merged.IndividualMaxTokens)
	assert.Equal(t, DefaultAggregateMaxTokens, merged.AggregateMaxTokens)
	assert.Equal(t, DefaultRolePrecedence, merged.RolePrecedence)
	assert.Equal(t, DefaultAddr, merged.Addr)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{
		InputRoot: "reports",
		Verbose:   true,
	}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "reports", merged.InputRoot)
	assert.True(t, merged.Verbose)
	assert.Empty(t, merged.OutputRoot)
	assert.Zero(t, merged.Temperature)
}
