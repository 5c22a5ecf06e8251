// Package output persists the artifacts of a run under an output root.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/schemas"
	"github.com/jonathan/report-review/internal/types"
)

const (
	// PerReportDir holds one JSON file per source report
	PerReportDir = "per_report"
	// SummariesFile is the ordered collection of every record
	SummariesFile = "individual_summaries.json"
	// ReviewFile is the organization review document
	ReviewFile = "organization_review.md"
)

// Writer writes run artifacts. Every write overwrites the previous file at
// the same path and creates parent directories as needed.
type Writer struct {
	root   string
	logger *zap.Logger
}

// NewWriter creates a writer rooted at root
func NewWriter(root string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{root: root, logger: logger}
}

// Root returns the output root
func (w *Writer) Root() string {
	return w.root
}

// PerReportPath maps a slash-separated source path onto its record file,
// replacing the extension with .json.
func (w *Writer) PerReportPath(relPath string) string {
	rel := strings.TrimSuffix(relPath, path.Ext(relPath)) + ".json"
	return filepath.Join(w.root, PerReportDir, filepath.FromSlash(rel))
}

// SummariesPath returns the location of the combined record file
func (w *Writer) SummariesPath() string {
	return filepath.Join(w.root, SummariesFile)
}

// ReviewPath returns the location of the review document
func (w *Writer) ReviewPath() string {
	return filepath.Join(w.root, ReviewFile)
}

// WriteRecords writes every per-report file followed by the combined
// collection. Records are validated against the PersonRecord schema first;
// a failing record aborts the write before anything touches disk.
func (w *Writer) WriteRecords(records []types.PersonRecord) error {
	for i := range records {
		if err := schemas.ValidatePersonRecord(records[i]); err != nil {
			return fmt.Errorf("record %s does not match schema: %w", records[i].SourcePath, err)
		}
	}

	written := make(map[string]string, len(records))
	for _, record := range records {
		target := w.PerReportPath(record.SourcePath)
		if prev, ok := written[target]; ok {
			w.logger.Warn("per-report output collides, later record wins",
				zap.String("path", target),
				zap.String("previous", prev),
				zap.String("source", record.SourcePath))
		}
		written[target] = record.SourcePath

		if err := writeJSON(target, record); err != nil {
			return err
		}
	}

	if records == nil {
		records = []types.PersonRecord{}
	}
	return writeJSON(w.SummariesPath(), records)
}

// WriteReview writes the review header and body
func (w *Writer) WriteReview(review *types.OrganizationReview) error {
	if review == nil {
		return fmt.Errorf("no review to write")
	}
	return writeFile(w.ReviewPath(), []byte(review.Markdown()))
}

// RemoveReview deletes a review left by an earlier run at the same root, so
// a failed aggregation never leaves a stale document behind.
func (w *Writer) RemoveReview() error {
	err := os.Remove(w.ReviewPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale review: %w", err)
	}
	return nil
}

// Write persists a whole result. A nil review removes any stale review file.
func (w *Writer) Write(result *types.RunResult) error {
	if err := w.WriteRecords(result.Records); err != nil {
		return err
	}
	if result.Review == nil {
		return w.RemoveReview()
	}
	return w.WriteReview(result.Review)
}

// MarshalJSON encodes v with two-space indentation and without escaping
// non-ASCII or HTML characters.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(target string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", target, err)
	}
	return writeFile(target, data)
}

func writeFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
