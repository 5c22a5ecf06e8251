// Package pipeline provides the high-level orchestration of a review run:
// discover, extract, write records, aggregate, write the review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/aggregation"
	"github.com/jonathan/report-review/internal/db"
	"github.com/jonathan/report-review/internal/extraction"
	"github.com/jonathan/report-review/internal/ingestion"
	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/observability"
	"github.com/jonathan/report-review/internal/output"
	"github.com/jonathan/report-review/internal/prompts"
	"github.com/jonathan/report-review/internal/types"
)

// Stage names reported in progress events
const (
	StageDiscover  = "discover"
	StageExtract   = "extract"
	StageWrite     = "write"
	StageAggregate = "aggregate"
	StageComplete  = "complete"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Done    int    `json:"done,omitempty"`
	Total   int    `json:"total,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunStore persists a run alongside the output tree. *db.DB implements it.
type RunStore interface {
	CreateRun(ctx context.Context, in db.RunInput) (uuid.UUID, error)
	SaveRecord(ctx context.Context, runID uuid.UUID, ordinal int, record types.PersonRecord) error
	SaveReview(ctx context.Context, runID uuid.UUID, review *types.OrganizationReview) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
}

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	InputRoot  string
	OutputRoot string

	IndividualModel     string
	AggregateModel      string
	Temperature         float64
	IndividualMaxTokens int
	AggregateMaxTokens  int
	PlanPrompt          string

	PromptsDir     string // Empty uses the built-in prompts
	RolePrecedence extraction.RolePrecedence
	Workers        int

	Client  llm.Client               // Required
	Content extraction.ContentSource // Defaults to the file extractor
	Store   RunStore                 // Optional
	Printer *observability.Printer   // Optional verbose output
	Logger  *zap.Logger
	Now     func() time.Time

	OnProgress ProgressCallback
}

type runner struct {
	opts   RunOptions
	logger *zap.Logger
	runID  string
	dbID   uuid.UUID
}

// Run executes one review run. Per-file failures degrade individual records
// and never stop the run. When aggregation fails the records are still
// written and the returned error wraps *aggregation.AggregationError; the
// result is returned alongside it.
func Run(ctx context.Context, opts RunOptions) (*types.RunResult, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("an LLM client is required")
	}
	if opts.Content == nil {
		opts.Content = ingestion.NewExtractor()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &runner{opts: opts, logger: logger, runID: uuid.New().String()}
	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*types.RunResult, error) {
	opts := r.opts

	files, err := ingestion.Discover(opts.InputRoot)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	r.emit(ProgressEvent{Stage: StageDiscover, Total: len(files),
		Message: fmt.Sprintf("Discovered %d report(s) under %s", len(files), opts.InputRoot)})

	r.startStore(ctx)

	resolver := prompts.NewResolver(r.promptSource(), r.logger)

	extractor := extraction.NewEngine(opts.Client, opts.Content, resolver, extraction.Options{
		Model:          opts.IndividualModel,
		Temperature:    opts.Temperature,
		MaxTokens:      opts.IndividualMaxTokens,
		RolePrecedence: opts.RolePrecedence,
		Workers:        opts.Workers,
		Logger:         r.logger,
		OnRecord: func(done, total int, record types.PersonRecord) {
			msg := fmt.Sprintf("[%d/%d] extracted %s", done, total, record.SourcePath)
			if record.Degraded() {
				msg = fmt.Sprintf("[%d/%d] degraded %s: %s", done, total, record.SourcePath, record.Error)
			}
			r.emit(ProgressEvent{Stage: StageExtract, Message: msg, Done: done, Total: total, Content: record})
			if opts.Printer != nil {
				opts.Printer.PrintRecord(record)
			}
		},
	})
	records := extractor.ProcessAll(ctx, files)
	result := &types.RunResult{Records: records}

	writer := output.NewWriter(opts.OutputRoot, r.logger)
	if err := writer.WriteRecords(records); err != nil {
		r.finishStore(ctx, db.StatusFailed)
		return result, fmt.Errorf("writing records failed: %w", err)
	}
	r.saveRecords(ctx, records)
	r.emit(ProgressEvent{Stage: StageWrite, Total: len(records),
		Message: fmt.Sprintf("Wrote %d record(s) to %s", len(records), writer.SummariesPath())})

	r.emit(ProgressEvent{Stage: StageAggregate, Total: len(records),
		Message: fmt.Sprintf("Aggregating %d record(s) with %s", len(records), opts.AggregateModel)})
	aggregator := aggregation.NewEngine(opts.Client, resolver, aggregation.Options{
		Model:           opts.AggregateModel,
		Temperature:     opts.Temperature,
		MaxTokens:       opts.AggregateMaxTokens,
		IndividualModel: opts.IndividualModel,
		Logger:          r.logger,
		Now:             opts.Now,
	})
	review, aggErr := aggregator.Aggregate(ctx, records, opts.PlanPrompt)
	if aggErr != nil {
		r.logger.Error("aggregation failed", zap.Error(aggErr))
		if err := writer.RemoveReview(); err != nil {
			r.logger.Warn("could not remove stale review", zap.Error(err))
		}
		r.finishStore(ctx, db.StatusAggregateFailed)
		if opts.Printer != nil {
			opts.Printer.PrintRunSummary(result)
		}
		return result, aggErr
	}

	result.Review = review
	if err := writer.WriteReview(review); err != nil {
		r.finishStore(ctx, db.StatusFailed)
		return result, fmt.Errorf("writing review failed: %w", err)
	}
	r.saveReview(ctx, review)
	r.finishStore(ctx, db.StatusCompleted)

	if opts.Printer != nil {
		opts.Printer.PrintReview(review)
		opts.Printer.PrintRunSummary(result)
	}
	r.emit(ProgressEvent{Stage: StageComplete, Total: len(records),
		Message: fmt.Sprintf("Review written to %s", writer.ReviewPath())})

	return result, nil
}

func (r *runner) promptSource() prompts.Source {
	if r.opts.PromptsDir == "" {
		return nil
	}
	return prompts.FileSource{Dir: r.opts.PromptsDir}
}

// emit calls the progress callback if configured
func (r *runner) emit(event ProgressEvent) {
	event.RunID = r.runID
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(event)
	}
}

// Store failures are logged and never affect the run's outcome.

func (r *runner) startStore(ctx context.Context) {
	if r.opts.Store == nil {
		return
	}
	id, err := r.opts.Store.CreateRun(ctx, db.RunInput{
		InputRoot:       r.opts.InputRoot,
		OutputRoot:      r.opts.OutputRoot,
		IndividualModel: r.opts.IndividualModel,
		AggregateModel:  r.opts.AggregateModel,
		Temperature:     r.opts.Temperature,
	})
	if err != nil {
		r.logger.Warn("failed to create database run, continuing without persistence", zap.Error(err))
		return
	}
	r.dbID = id
	r.runID = id.String()
}

func (r *runner) saveRecords(ctx context.Context, records []types.PersonRecord) {
	if r.dbID == uuid.Nil {
		return
	}
	var errs []error
	for i, record := range records {
		if err := r.opts.Store.SaveRecord(ctx, r.dbID, i, record); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.logger.Warn("failed to persist records", zap.Error(err))
	}
}

func (r *runner) saveReview(ctx context.Context, review *types.OrganizationReview) {
	if r.dbID == uuid.Nil {
		return
	}
	if err := r.opts.Store.SaveReview(ctx, r.dbID, review); err != nil {
		r.logger.Warn("failed to persist review", zap.Error(err))
	}
}

func (r *runner) finishStore(ctx context.Context, status string) {
	if r.dbID == uuid.Nil {
		return
	}
	// The run context may already be canceled; the final status is still recorded
	if err := r.opts.Store.CompleteRun(context.WithoutCancel(ctx), r.dbID, status); err != nil {
		r.logger.Warn("failed to complete database run", zap.Error(err))
	}
}
