package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/report-review/internal/aggregation"
	"github.com/jonathan/report-review/internal/ingestion"
	"github.com/jonathan/report-review/internal/logging"
	"github.com/jonathan/report-review/internal/output"
	"github.com/jonathan/report-review/internal/pipeline"
)

// RunResponse reports the outcome of one run. Paths are relative to the
// data root and can be passed to /download.
type RunResponse struct {
	RunID        string `json:"run_id"`
	ExitCode     int    `json:"exit_code"`
	Log          string `json:"log"`
	RunDir       string `json:"run_dir"`
	Individual   string `json:"individual,omitempty"`
	Organization string `json:"organization,omitempty"`
	Records      int    `json:"records"`
	Degraded     int    `json:"degraded"`
	Error        string `json:"error,omitempty"`
}

// runLog collects a run's log lines and forwards each one as it arrives
type runLog struct {
	mu      sync.Mutex
	lines   []string
	forward func(line string)
}

func (l *runLog) add(line string) {
	l.append(line, true)
}

// note records a line without forwarding it
func (l *runLog) note(line string) {
	l.append(line, false)
}

func (l *runLog) append(line string, forward bool) {
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
	if forward && l.forward != nil {
		l.forward(line)
	}
}

// Write receives encoded zap entries
func (l *runLog) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		l.add(line)
	}
	return len(p), nil
}

func (l *runLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

// handleRun runs a review synchronously and returns its outcome
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeRequest(r, &req, true); err != nil {
		s.fail(w, err)
		return
	}
	inputRoot, err := s.prepareRun(req)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp, err := s.executeRun(r.Context(), req, inputRoot, &runLog{}, nil)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleRunStream runs a review and streams log, progress and done events via SSE
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeRequest(r, &req, true); err != nil {
		s.fail(w, err)
		return
	}
	inputRoot, err := s.prepareRun(req)
	if err != nil {
		s.fail(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log := &runLog{forward: sse.WriteLog}
	onProgress := func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.Debug("error writing SSE event", zap.Error(err))
		}
	}

	resp, err := s.executeRun(r.Context(), req, inputRoot, log, onProgress)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	if err := sse.WriteEvent("done", resp); err != nil {
		s.logger.Debug("error writing SSE event", zap.Error(err))
	}
}

// prepareRun resolves the input directory and checks it holds reports
func (s *Server) prepareRun(req RunRequest) (string, error) {
	inputRoot, err := safeJoin(s.uploadRoot, req.InputDir)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(inputRoot); err != nil || !info.IsDir() {
		return "", &ErrNotFound{What: req.InputDir}
	}
	files, err := ingestion.Discover(inputRoot)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", &ErrValidation{Field: "input_dir", Message: "no supported reports found"}
	}
	return inputRoot, nil
}

// executeRun runs the pipeline into a fresh directory under the runs root.
// Pipeline failures are reported in the response with a non-zero exit code.
func (s *Server) executeRun(ctx context.Context, req RunRequest, inputRoot string, log *runLog, onProgress pipeline.ProgressCallback) (*RunResponse, error) {
	runName := fmt.Sprintf("run-%s-%s", s.now().Format("20060102-150405"), uuid.NewString()[:8])
	outDir := filepath.Join(s.runsRoot, runName)

	client, err := s.cfg.NewClient(ctx, req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	encoder := zapcore.NewConsoleEncoder(logging.Config(false).EncoderConfig)
	logger := zap.New(zapcore.NewTee(
		s.logger.Core(),
		zapcore.NewCore(encoder, zapcore.AddSync(log), zapcore.InfoLevel),
	)).With(zap.String("run", runName))

	opts := s.cfg.Run
	opts.InputRoot = inputRoot
	opts.OutputRoot = outDir
	opts.Client = client
	opts.Logger = logger
	opts.Printer = nil
	if s.cfg.Store != nil {
		opts.Store = s.cfg.Store
	}
	applyRequest(&opts, req)
	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if onProgress == nil {
			log.add(event.Message)
			return
		}
		log.note(event.Message)
		onProgress(event)
	}

	log.add(fmt.Sprintf("starting run %s", runName))
	result, runErr := pipeline.Run(ctx, opts)

	resp := &RunResponse{RunID: runName, RunDir: s.relPath(outDir)}
	if result != nil {
		resp.Records = len(result.Records)
		resp.Degraded = result.DegradedCount()
	}
	if runErr != nil {
		resp.ExitCode = 1
		resp.Error = runErr.Error()
		var aggErr *aggregation.AggregationError
		if errors.As(runErr, &aggErr) {
			log.add("aggregation failed: " + aggErr.Error())
		}
	}
	for path, field := range map[string]*string{
		filepath.Join(outDir, output.SummariesFile): &resp.Individual,
		filepath.Join(outDir, output.ReviewFile):    &resp.Organization,
	} {
		if _, err := os.Stat(path); err == nil {
			*field = s.relPath(path)
		}
	}
	log.add(fmt.Sprintf("run finished with exit code %d", resp.ExitCode))
	resp.Log = log.String()
	return resp, nil
}

// applyRequest overrides run defaults with non-zero request fields
func applyRequest(opts *pipeline.RunOptions, req RunRequest) {
	if req.Model != "" {
		opts.IndividualModel = req.Model
	}
	if req.AggregateModel != "" {
		opts.AggregateModel = req.AggregateModel
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokensIndividual > 0 {
		opts.IndividualMaxTokens = req.MaxTokensIndividual
	}
	if req.MaxTokensAggregate > 0 {
		opts.AggregateMaxTokens = req.MaxTokensAggregate
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if req.PlanPrompt != "" {
		opts.PlanPrompt = req.PlanPrompt
	}
}
