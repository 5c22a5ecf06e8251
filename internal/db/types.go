package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status values
const (
	StatusRunning         = "running"
	StatusCompleted       = "completed"
	StatusAggregateFailed = "aggregate_failed"
	StatusFailed          = "failed"
)

// RunInput describes a run when it is created
type RunInput struct {
	InputRoot       string
	OutputRoot      string
	IndividualModel string
	AggregateModel  string
	Temperature     float64
}

// Run represents a review run record
type Run struct {
	ID              uuid.UUID  `json:"id"`
	InputRoot       string     `json:"input_root"`
	OutputRoot      string     `json:"output_root"`
	IndividualModel string     `json:"individual_model"`
	AggregateModel  string     `json:"aggregate_model"`
	Temperature     float64    `json:"temperature"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// RecordSummary is one stored person record without its full content
type RecordSummary struct {
	Ordinal    int    `json:"ordinal"`
	SourcePath string `json:"source_path"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Degraded   bool   `json:"degraded"`
}
