package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const defaultHistoryLimit = 50

// handleListHistory lists persisted runs, newest first
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.fail(w, &ErrUnavailable{Feature: "run history"})
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			s.fail(w, &ErrValidation{Field: "limit", Message: "must be between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := s.cfg.Store.ListRuns(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetHistory returns one persisted run
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.historyID(w, r)
	if !ok {
		return
	}
	run, err := s.cfg.Store.GetRun(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if run == nil {
		s.fail(w, &ErrNotFound{What: runID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleHistoryRecords lists a run's records. ?department= filters the
// summaries; ?full=true returns complete records instead.
func (s *Server) handleHistoryRecords(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.historyID(w, r)
	if !ok {
		return
	}

	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); full {
		records, err := s.cfg.Store.ListRecords(r.Context(), runID)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
		return
	}

	summaries, err := s.cfg.Store.ListRecordSummaries(r.Context(), runID, r.URL.Query().Get("department"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"records": summaries, "count": len(summaries)})
}

// handleHistoryReview returns a run's stored review as markdown
func (s *Server) handleHistoryReview(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.historyID(w, r)
	if !ok {
		return
	}
	review, err := s.cfg.Store.GetReview(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if review == nil {
		s.fail(w, &ErrNotFound{What: "review for " + runID.String()})
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(review.Markdown()))
}

// historyID parses the run ID path value, writing the error response on failure
func (s *Server) historyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if s.cfg.Store == nil {
		s.fail(w, &ErrUnavailable{Feature: "run history"})
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "id", Message: "invalid run ID format"})
		return uuid.Nil, false
	}
	return runID, true
}
