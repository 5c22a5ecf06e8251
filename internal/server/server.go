// Package server provides the web surface for uploading reports, running
// reviews and downloading their output.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/db"
	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/pipeline"
	"github.com/jonathan/report-review/internal/server/ratelimit"
	"github.com/jonathan/report-review/internal/types"
)

// Directories created under the data root
const (
	UploadDir = "uploads"
	RunsDir   = "runs"
)

// ClientFactory builds the LLM client for one run. apiKey is the key sent
// with the request and may be empty.
type ClientFactory func(ctx context.Context, apiKey string) (llm.Client, error)

// Store persists runs and serves their history. *db.DB implements it.
type Store interface {
	pipeline.RunStore
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	ListRecords(ctx context.Context, runID uuid.UUID) ([]types.PersonRecord, error)
	ListRecordSummaries(ctx context.Context, runID uuid.UUID, department string) ([]db.RecordSummary, error)
	GetReview(ctx context.Context, runID uuid.UUID) (*types.OrganizationReview, error)
}

// Config holds server configuration
type Config struct {
	Addr      string
	DataRoot  string
	Run       pipeline.RunOptions // Defaults for every run; roots and client are set per run
	NewClient ClientFactory       // Required
	Store     Store               // Optional
	RateLimit *ratelimit.Config   // Nil uses ratelimit.DefaultConfig
	Logger    *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	cfg        Config
	logger     *zap.Logger
	limiter    *ratelimit.Limiter
	dataRoot   string
	uploadRoot string
	runsRoot   string
	now        func() time.Time
}

// New creates a new server instance and its data directories
func New(cfg Config) (*Server, error) {
	if cfg.NewClient == nil {
		return nil, fmt.Errorf("a client factory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dataRoot, err := filepath.Abs(cfg.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data root: %w", err)
	}
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		limiter:    ratelimit.NewLimiter(cfg.RateLimit),
		dataRoot:   dataRoot,
		uploadRoot: filepath.Join(dataRoot, UploadDir),
		runsRoot:   filepath.Join(dataRoot, RunsDir),
		now:        time.Now,
	}
	for _, dir := range []string{s.uploadRoot, s.runsRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // Runs stream for as long as the model takes
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Upload tree
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /tree", s.handleTree)
	mux.HandleFunc("POST /mkdir", s.handleMkdir)
	mux.HandleFunc("POST /delete", s.handleDelete)
	mux.HandleFunc("GET /download", s.handleDownload)

	// Runs
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("POST /run/stream", s.handleRunStream)

	// Persisted history
	mux.HandleFunc("GET /history", s.handleListHistory)
	mux.HandleFunc("GET /history/{id}", s.handleGetHistory)
	mux.HandleFunc("GET /history/{id}/records", s.handleHistoryRecords)
	mux.HandleFunc("GET /history/{id}/review", s.handleHistoryReview)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("server starting",
			zap.String("addr", s.httpServer.Addr),
			zap.String("data_root", s.dataRoot))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients that exceed their endpoint's budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := s.limiter.Allow(clientID(r), r.Method, r.URL.Path)
		if decision.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		if !decision.Allowed {
			retry := int(decision.RetryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.logger.Warn("rate limit exceeded",
				zap.String("client", clientID(r)),
				zap.String("path", r.URL.Path))
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// clientID identifies the caller by IP address
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err onto its status code and writes it
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// relPath returns path relative to the data root, slash-separated
func (s *Server) relPath(path string) string {
	rel, err := filepath.Rel(s.dataRoot, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
