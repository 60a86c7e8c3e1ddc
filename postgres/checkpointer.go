// Package postgres provides a Checkpointer backed by PostgreSQL, suitable
// for durable workflow state shared between processes.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/dagflow"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflow_checkpoints (
	execution_id  TEXT PRIMARY KEY,
	workflow_name TEXT NOT NULL,
	status        TEXT NOT NULL,
	checkpoint    JSONB NOT NULL,
	checkpoint_at TIMESTAMPTZ NOT NULL
)`

// Checkpointer stores one checkpoint row per execution. Each save replaces
// the previous snapshot, matching the latest-wins semantics of the file
// checkpointer.
type Checkpointer struct {
	db *sql.DB
}

// New opens a connection pool for the given DSN and prepares the schema.
func New(ctx context.Context, dsn string) (*Checkpointer, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	checkpointer, err := NewWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return checkpointer, nil
}

// NewWithDB wraps an existing connection pool and prepares the schema. The
// caller retains ownership of the pool.
func NewWithDB(ctx context.Context, db *sql.DB) (*Checkpointer, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return &Checkpointer{db: db}, nil
}

// Close releases the underlying connection pool.
func (c *Checkpointer) Close() error {
	return c.db.Close()
}

// SaveCheckpoint upserts the execution's snapshot.
func (c *Checkpointer) SaveCheckpoint(ctx context.Context, checkpoint *dagflow.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO workflow_checkpoints (execution_id, workflow_name, status, checkpoint, checkpoint_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (execution_id) DO UPDATE SET
			status = EXCLUDED.status,
			checkpoint = EXCLUDED.checkpoint,
			checkpoint_at = EXCLUDED.checkpoint_at`,
		checkpoint.ExecutionID,
		checkpoint.WorkflowName,
		checkpoint.Status,
		data,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the latest snapshot for the execution, or nil when
// none exists.
func (c *Checkpointer) LoadCheckpoint(ctx context.Context, executionID string) (*dagflow.Checkpoint, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT checkpoint FROM workflow_checkpoints WHERE execution_id = $1`,
		executionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var checkpoint dagflow.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// DeleteCheckpoint removes the execution's snapshot.
func (c *Checkpointer) DeleteCheckpoint(ctx context.Context, executionID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM workflow_checkpoints WHERE execution_id = $1`, executionID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// ListExecutions returns summaries of stored checkpoints, newest first.
func (c *Checkpointer) ListExecutions(ctx context.Context) ([]*dagflow.ExecutionSummary, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT checkpoint FROM workflow_checkpoints
		ORDER BY checkpoint_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var summaries []*dagflow.ExecutionSummary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var checkpoint dagflow.Checkpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			continue
		}
		summary := &dagflow.ExecutionSummary{
			ExecutionID:  checkpoint.ExecutionID,
			WorkflowName: checkpoint.WorkflowName,
			Status:       checkpoint.Status,
			StartTime:    checkpoint.StartTime,
			EndTime:      checkpoint.EndTime,
			Error:        checkpoint.Error,
		}
		if !checkpoint.EndTime.IsZero() {
			summary.Duration = checkpoint.EndTime.Sub(checkpoint.StartTime)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

var _ dagflow.Checkpointer = (*Checkpointer)(nil)
