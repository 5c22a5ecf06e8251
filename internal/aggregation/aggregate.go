// Package aggregation folds every PersonRecord of a run into one organization review.
package aggregation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/prompts"
	"github.com/jonathan/report-review/internal/types"
)

// PromptResolver supplies the prompt pair for a role
type PromptResolver interface {
	Resolve(role prompts.Role) prompts.Prompt
}

// Options configures an Engine
type Options struct {
	Model           string
	Temperature     float64
	MaxTokens       int    // Zero leaves the provider default
	IndividualModel string // Recorded in the review header only
	Logger          *zap.Logger
	Now             func() time.Time
}

// Engine produces the organization review
type Engine struct {
	client  llm.Client
	prompts PromptResolver
	opts    Options
	logger  *zap.Logger
}

// NewEngine creates an aggregation engine
func NewEngine(client llm.Client, resolver PromptResolver, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{client: client, prompts: resolver, opts: opts, logger: logger}
}

// Aggregate sends the full record sequence to the model in a single call and
// returns its reply as the review body. A non-empty planPrompt is appended to
// the user message as an extra instruction block.
func (e *Engine) Aggregate(ctx context.Context, records []types.PersonRecord, planPrompt string) (*types.OrganizationReview, error) {
	people, err := MarshalRecords(records)
	if err != nil {
		return nil, &AggregationError{Message: "failed to serialize records", Cause: err}
	}

	prompt := e.prompts.Resolve(prompts.RoleAggregate).Apply(map[string]string{
		"People":          people,
		"IndustryContext": prompts.IndustryContext,
	})

	user := prompt.User
	if plan := strings.TrimSpace(planPrompt); plan != "" {
		user = strings.TrimRight(user, "\n") + "\n\nAdditional context:\n" + plan
	}

	e.logger.Info("aggregating records",
		zap.Int("records", len(records)),
		zap.String("model", e.opts.Model))

	body, err := e.client.Complete(ctx, llm.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   user,
		Model:        e.opts.Model,
		Temperature:  e.opts.Temperature,
		MaxTokens:    e.opts.MaxTokens,
	})
	if err != nil {
		return nil, &AggregationError{Message: "model call failed", Cause: err}
	}

	return &types.OrganizationReview{
		GeneratedAt:     e.opts.Now(),
		IndividualModel: e.opts.IndividualModel,
		AggregateModel:  e.opts.Model,
		Temperature:     e.opts.Temperature,
		Body:            body,
	}, nil
}

// MarshalRecords serializes records as an indented JSON array with
// non-ASCII and HTML characters left unescaped.
func MarshalRecords(records []types.PersonRecord) (string, error) {
	if records == nil {
		records = []types.PersonRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encoding records: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
