// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default values applied by MergeWithDefaults
const (
	DefaultOutputRoot          = "output"
	DefaultProvider            = "deepseek"
	DefaultTemperature         = 1.3
	DefaultIndividualMaxTokens = 4000
	DefaultAggregateMaxTokens  = 32000
	DefaultRolePrecedence      = "model"
	DefaultWorkers             = 1
	DefaultAddr                = ":8080"
	DefaultDataRoot            = "data"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	InputRoot  string `json:"input_root,omitempty"`  // Directory tree of reports
	OutputRoot string `json:"output_root,omitempty"` // Where records and the review are written
	PromptsDir string `json:"prompts_dir,omitempty"` // Custom prompt templates, built-ins when empty
	PlanPrompt string `json:"plan_prompt,omitempty"` // Extra instructions for the aggregate call

	// Models
	Provider            string  `json:"provider,omitempty" validate:"omitempty,oneof=deepseek openai gemini google"`
	BaseURL             string  `json:"base_url,omitempty" validate:"omitempty,url"`
	IndividualModel     string  `json:"individual_model,omitempty"`
	AggregateModel      string  `json:"aggregate_model,omitempty"`
	Temperature         float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	IndividualMaxTokens int     `json:"individual_max_tokens,omitempty" validate:"gte=0"`
	AggregateMaxTokens  int     `json:"aggregate_max_tokens,omitempty" validate:"gte=0"`

	// Behavior
	RolePrecedence string `json:"role_precedence,omitempty" validate:"omitempty,oneof=model heuristic"`
	Workers        int    `json:"workers,omitempty" validate:"gte=0,lte=64"`
	APIKey         string `json:"api_key,omitempty"`      // Provider API key, environment when empty
	Verbose        bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL    string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Web surface
	Addr     string `json:"addr,omitempty"`      // Listen address for serve
	DataRoot string `json:"data_root,omitempty"` // Holds uploads/ and runs/ for serve
}

var validate = newValidator()

// newValidator reports fields by their JSON key
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Defaults returns the built-in configuration values
func Defaults() Config {
	return Config{
		OutputRoot:          DefaultOutputRoot,
		Provider:            DefaultProvider,
		Temperature:         DefaultTemperature,
		IndividualMaxTokens: DefaultIndividualMaxTokens,
		AggregateMaxTokens:  DefaultAggregateMaxTokens,
		RolePrecedence:      DefaultRolePrecedence,
		Workers:             DefaultWorkers,
		Addr:                DefaultAddr,
		DataRoot:            DefaultDataRoot,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those depend on the
// command being run.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("'%s' failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.InputRoot != "" {
		info, err := os.Stat(c.InputRoot)
		if os.IsNotExist(err) {
			return fmt.Errorf("config error: input root not found: %s", c.InputRoot)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("config error: input root is not a directory: %s", c.InputRoot)
		}
	}

	if c.PromptsDir != "" {
		if _, err := os.Stat(c.PromptsDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: prompts directory not found: %s", c.PromptsDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	for _, f := range []struct{ dst, src *string }{
		{&result.InputRoot, &defaults.InputRoot},
		{&result.OutputRoot, &defaults.OutputRoot},
		{&result.PromptsDir, &defaults.PromptsDir},
		{&result.PlanPrompt, &defaults.PlanPrompt},
		{&result.Provider, &defaults.Provider},
		{&result.BaseURL, &defaults.BaseURL},
		{&result.IndividualModel, &defaults.IndividualModel},
		{&result.AggregateModel, &defaults.AggregateModel},
		{&result.RolePrecedence, &defaults.RolePrecedence},
		{&result.APIKey, &defaults.APIKey},
		{&result.DatabaseURL, &defaults.DatabaseURL},
		{&result.Addr, &defaults.Addr},
		{&result.DataRoot, &defaults.DataRoot},
	} {
		if *f.dst == "" {
			*f.dst = *f.src
		}
	}

	// Int fields: use default if zero
	if result.IndividualMaxTokens == 0 {
		result.IndividualMaxTokens = defaults.IndividualMaxTokens
	}
	if result.AggregateMaxTokens == 0 {
		result.AggregateMaxTokens = defaults.AggregateMaxTokens
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	// Float fields: a file cannot express an explicit zero temperature, the
	// --temperature flag can
	if result.Temperature == 0 {
		result.Temperature = defaults.Temperature
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
