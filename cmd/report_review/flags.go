package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/report-review/internal/config"
	"github.com/jonathan/report-review/internal/extraction"
	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/pipeline"
)

// runFlags are the configuration flags shared by analyze and serve
type runFlags struct {
	configPath string
	values     config.Config
}

func (f *runFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	v := &f.values

	// Config file flag (processed first)
	flags.StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	flags.StringVar(&v.Provider, "provider", "", "LLM provider: deepseek, openai or gemini (default deepseek)")
	flags.StringVar(&v.BaseURL, "base-url", "", "Base URL for OpenAI-compatible providers (defaults to DEEPSEEK_BASE_URL)")
	flags.StringVar(&v.IndividualModel, "model", "", "Model for per-report extraction (defaults to DEEPSEEK_MODEL or the provider default)")
	flags.StringVar(&v.AggregateModel, "aggregate-model", "", "Model for the organization review (defaults to DEEPSEEK_AGG_MODEL or the provider default)")
	flags.Float64Var(&v.Temperature, "temperature", 0, "Sampling temperature (default 1.3)")
	flags.IntVar(&v.IndividualMaxTokens, "max-tokens-individual", 0, "Max tokens per extraction call (default 4000)")
	flags.IntVar(&v.AggregateMaxTokens, "max-tokens-aggregate", 0, "Max tokens for the aggregation call (default 32000)")
	flags.StringVar(&v.PlanPrompt, "plan-prompt", "", "Additional instructions appended to the aggregation request")
	flags.StringVar(&v.PromptsDir, "prompts-dir", "", "Directory with custom prompt templates (see init-prompts)")
	flags.StringVar(&v.RolePrecedence, "role-precedence", "", "Which role wins when the model and file name disagree: model or heuristic")
	flags.IntVar(&v.Workers, "workers", 0, "Number of reports extracted concurrently (default 1)")

	// API key can be passed as a flag, or read from the provider's env var
	flags.StringVar(&v.APIKey, "api-key", "", "Provider API key (defaults to DEEPSEEK_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY)")

	// Database URL for run persistence
	flags.StringVar(&v.DatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

// resolve builds the effective configuration: config file, then defaults,
// then explicitly set flags, then environment for anything still empty.
func (f *runFlags) resolve(cmd *cobra.Command, extra ...func(cfg *config.Config)) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())

	// Only override if the flag was explicitly set
	v := f.values
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"provider", func() { cfg.Provider = v.Provider }},
		{"base-url", func() { cfg.BaseURL = v.BaseURL }},
		{"model", func() { cfg.IndividualModel = v.IndividualModel }},
		{"aggregate-model", func() { cfg.AggregateModel = v.AggregateModel }},
		{"temperature", func() { cfg.Temperature = v.Temperature }},
		{"max-tokens-individual", func() { cfg.IndividualMaxTokens = v.IndividualMaxTokens }},
		{"max-tokens-aggregate", func() { cfg.AggregateMaxTokens = v.AggregateMaxTokens }},
		{"plan-prompt", func() { cfg.PlanPrompt = v.PlanPrompt }},
		{"prompts-dir", func() { cfg.PromptsDir = v.PromptsDir }},
		{"role-precedence", func() { cfg.RolePrecedence = v.RolePrecedence }},
		{"workers", func() { cfg.Workers = v.Workers }},
		{"api-key", func() { cfg.APIKey = v.APIKey }},
		{"db-url", func() { cfg.DatabaseURL = v.DatabaseURL }},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			o.apply()
		}
	}
	for _, apply := range extra {
		apply(&cfg)
	}

	if err := applyEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyEnv fills empty provider settings from the environment and the
// provider's default model pair.
func applyEnv(cfg *config.Config) error {
	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return err
	}
	cfg.Provider = string(provider)
	defaults := llm.DefaultConfigFor(provider)

	fill := func(dst *string, values ...string) {
		for _, value := range values {
			if *dst != "" {
				return
			}
			*dst = value
		}
	}
	fill(&cfg.APIKey, os.Getenv(llm.APIKeyEnv(provider)))
	fill(&cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	if provider == llm.ProviderDeepSeek {
		fill(&cfg.BaseURL, os.Getenv("DEEPSEEK_BASE_URL"))
		fill(&cfg.IndividualModel, os.Getenv("DEEPSEEK_MODEL"))
		fill(&cfg.AggregateModel, os.Getenv("DEEPSEEK_AGG_MODEL"))
	}
	fill(&cfg.BaseURL, defaults.BaseURL)
	fill(&cfg.IndividualModel, defaults.IndividualModel)
	fill(&cfg.AggregateModel, defaults.AggregateModel)
	return nil
}

// newLLMClient creates the provider client. apiKey overrides the configured key.
func newLLMClient(ctx context.Context, cfg config.Config, apiKey string) (llm.Client, error) {
	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable or --api-key flag is required", llm.APIKeyEnv(provider))
	}

	llmConfig := llm.DefaultConfigFor(provider)
	if cfg.BaseURL != "" {
		llmConfig.BaseURL = cfg.BaseURL
	}
	llmConfig.IndividualModel = cfg.IndividualModel
	llmConfig.AggregateModel = cfg.AggregateModel
	return llm.NewClient(ctx, llmConfig, apiKey)
}

// runOptions maps a resolved configuration onto pipeline options
func runOptions(cfg config.Config) (pipeline.RunOptions, error) {
	precedence, err := extraction.ParseRolePrecedence(cfg.RolePrecedence)
	if err != nil {
		return pipeline.RunOptions{}, err
	}
	return pipeline.RunOptions{
		InputRoot:           cfg.InputRoot,
		OutputRoot:          cfg.OutputRoot,
		IndividualModel:     cfg.IndividualModel,
		AggregateModel:      cfg.AggregateModel,
		Temperature:         cfg.Temperature,
		IndividualMaxTokens: cfg.IndividualMaxTokens,
		AggregateMaxTokens:  cfg.AggregateMaxTokens,
		PlanPrompt:          cfg.PlanPrompt,
		PromptsDir:          cfg.PromptsDir,
		RolePrecedence:      precedence,
		Workers:             cfg.Workers,
	}, nil
}
