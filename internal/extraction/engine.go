package extraction

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/prompts"
	"github.com/jonathan/report-review/internal/types"
)

// ContentSource reads the text of a discovered file
type ContentSource interface {
	Extract(file types.SourceFile) (*types.ExtractedContent, error)
}

// PromptResolver supplies the prompt pair for a role
type PromptResolver interface {
	Resolve(role prompts.Role) prompts.Prompt
}

// Options configures an Engine
type Options struct {
	Model          string
	Temperature    float64
	MaxTokens      int // Zero leaves the provider default
	RolePrecedence RolePrecedence
	Workers        int // Values below 1 run sequentially
	Logger         *zap.Logger

	// OnRecord is called once per finished file, never concurrently
	OnRecord func(done, total int, record types.PersonRecord)
}

// Engine extracts PersonRecords from source files
type Engine struct {
	client  llm.Client
	content ContentSource
	prompts PromptResolver
	opts    Options
	logger  *zap.Logger
}

// NewEngine creates an extraction engine
func NewEngine(client llm.Client, content ContentSource, resolver PromptResolver, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RolePrecedence == "" {
		opts.RolePrecedence = PrecedenceModel
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		client:  client,
		content: content,
		prompts: resolver,
		opts:    opts,
		logger:  logger,
	}
}

// Process extracts one file. It always returns a record; failures produce a
// degraded record with Error set.
func (e *Engine) Process(ctx context.Context, file types.SourceFile) types.PersonRecord {
	role := DetectRole(file.Title())

	content, err := e.content.Extract(file)
	if err != nil {
		return e.degrade(file, role, err)
	}

	prompt := e.prompts.Resolve(prompts.RoleIndividual).Apply(map[string]string{
		"Content":         content.Text,
		"Title":           file.Title(),
		"Department":      file.Department(),
		"RoleHint":        roleHint(role),
		"SourcePath":      file.RelPath,
		"IndustryContext": prompts.IndustryContext,
		"DepartmentFocus": prompts.DepartmentFocus(file.Department()),
	})

	response, err := e.client.Complete(ctx, llm.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Model:        e.opts.Model,
		Temperature:  e.opts.Temperature,
		MaxTokens:    e.opts.MaxTokens,
	})
	if err != nil {
		return e.degrade(file, role, fmt.Errorf("model call failed: %w", err))
	}

	raw, err := llm.ExtractJSONObject(response)
	if err != nil {
		return e.degrade(file, role, &ExtractionParseError{
			Message: "no JSON object in model response",
			Cause:   err,
		})
	}

	record := Normalize(raw, role, e.opts.RolePrecedence)
	record.SourcePath = file.RelPath
	return record
}

// ProcessAll extracts every file and returns records in the order of files,
// whatever the worker count.
func (e *Engine) ProcessAll(ctx context.Context, files []types.SourceFile) []types.PersonRecord {
	records := make([]types.PersonRecord, len(files))
	total := len(files)

	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for i, file := range files {
		g.Go(func() error {
			e.logger.Info("processing report",
				zap.Int("index", i+1),
				zap.Int("total", total),
				zap.String("path", file.RelPath),
				zap.String("department", file.Department()))

			record := e.Process(ctx, file)
			records[i] = record

			mu.Lock()
			defer mu.Unlock()
			done++
			if e.opts.OnRecord != nil {
				e.opts.OnRecord(done, total, record)
			}
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func (e *Engine) degrade(file types.SourceFile, role types.Role, err error) types.PersonRecord {
	e.logger.Warn("extraction degraded",
		zap.String("path", file.RelPath),
		zap.Error(err))
	return Degraded(file, role, err)
}

// Degraded builds the placeholder record for a file whose extraction failed
func Degraded(file types.SourceFile, role types.Role, err error) types.PersonRecord {
	record := types.NewPersonRecord(file.RelPath, role)
	record.Error = err.Error()
	return record
}
