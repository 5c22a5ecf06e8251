// Package db provides optional PostgreSQL persistence for review runs.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/report-review/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the tables used by review runs if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateRun inserts a run in the running state and returns its ID
func (db *DB) CreateRun(ctx context.Context, in RunInput) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO review_runs (input_root, output_root, individual_model, aggregate_model, temperature, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		in.InputRoot, in.OutputRoot, in.IndividualModel, in.AggregateModel, in.Temperature, StatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun sets the final status of a run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE review_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveRecord stores the record at position ordinal of a run, replacing any
// record previously stored there.
func (db *DB) SaveRecord(ctx context.Context, runID uuid.UUID, ordinal int, record types.PersonRecord) error {
	content, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO person_records (run_id, ordinal, source_path, name, department, role, degraded, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id, ordinal) DO UPDATE
		 SET source_path = $3, name = $4, department = $5, role = $6, degraded = $7, content = $8, created_at = NOW()`,
		runID, ordinal, record.SourcePath, record.Name, record.Department, string(record.Role), record.Degraded(), content,
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.SourcePath, err)
	}
	return nil
}

// SaveReview stores the organization review of a run
func (db *DB) SaveReview(ctx context.Context, runID uuid.UUID, review *types.OrganizationReview) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO organization_reviews (run_id, generated_at, individual_model, aggregate_model, temperature, body)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id) DO UPDATE
		 SET generated_at = $2, individual_model = $3, aggregate_model = $4, temperature = $5, body = $6`,
		runID, review.GeneratedAt, review.IndividualModel, review.AggregateModel, review.Temperature, review.Body,
	)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, input_root, output_root, individual_model, aggregate_model, temperature, status, created_at, completed_at
		 FROM review_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.InputRoot, &run.OutputRoot, &run.IndividualModel, &run.AggregateModel,
		&run.Temperature, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent runs
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, input_root, output_root, individual_model, aggregate_model, temperature, status, created_at, completed_at
		 FROM review_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.InputRoot, &run.OutputRoot, &run.IndividualModel, &run.AggregateModel,
			&run.Temperature, &run.Status, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRecords returns the full records of a run in discovery order
func (db *DB) ListRecords(ctx context.Context, runID uuid.UUID) ([]types.PersonRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT content FROM person_records WHERE run_id = $1 ORDER BY ordinal`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []types.PersonRecord{}
	for rows.Next() {
		var content []byte
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var record types.PersonRecord
		if err := json.Unmarshal(content, &record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListRecordSummaries returns the indexed columns of a run's records, optionally
// restricted to one department.
func (db *DB) ListRecordSummaries(ctx context.Context, runID uuid.UUID, department string) ([]RecordSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT ordinal, source_path, name, department, role, degraded
		 FROM person_records
		 WHERE run_id = $1 AND ($2 = '' OR department = $2)
		 ORDER BY ordinal`,
		runID, department,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list record summaries: %w", err)
	}
	defer rows.Close()

	var summaries []RecordSummary
	for rows.Next() {
		var s RecordSummary
		if err := rows.Scan(&s.Ordinal, &s.SourcePath, &s.Name, &s.Department, &s.Role, &s.Degraded); err != nil {
			return nil, fmt.Errorf("failed to scan record summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetReview retrieves the review of a run. It returns nil when none was stored.
func (db *DB) GetReview(ctx context.Context, runID uuid.UUID) (*types.OrganizationReview, error) {
	var review types.OrganizationReview
	err := db.pool.QueryRow(ctx,
		`SELECT generated_at, individual_model, aggregate_model, temperature, body
		 FROM organization_reviews WHERE run_id = $1`,
		runID,
	).Scan(&review.GeneratedAt, &review.IndividualModel, &review.AggregateModel, &review.Temperature, &review.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}
