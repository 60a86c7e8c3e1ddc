package dagflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileCheckpointer persists checkpoints to disk, one directory per execution.
// Every save appends a history file and atomically replaces latest.json, so a
// reader never observes a partially written snapshot.
type FileCheckpointer struct {
	dataDir string
}

// NewFileCheckpointer creates a new file-based checkpointer. An empty dataDir
// defaults to a directory under the user's home.
func NewFileCheckpointer(dataDir string) (*FileCheckpointer, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".deepnoodle", "dagflow", "executions")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileCheckpointer{dataDir: dataDir}, nil
}

func (c *FileCheckpointer) executionDir(executionID string) string {
	return filepath.Join(c.dataDir, executionID)
}

// SaveCheckpoint writes the snapshot to the execution's history and updates
// latest.json via rename.
func (c *FileCheckpointer) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	dir := c.executionDir(checkpoint.ExecutionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create execution directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	historyPath := filepath.Join(dir, fmt.Sprintf("checkpoint-%s.json", checkpoint.ID))
	if err := os.WriteFile(historyPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	tmpPath := filepath.Join(dir, "latest.json.tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write latest checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, "latest.json")); err != nil {
		return fmt.Errorf("failed to replace latest checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the latest snapshot for an execution, or nil when no
// checkpoint exists.
func (c *FileCheckpointer) LoadCheckpoint(ctx context.Context, executionID string) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(c.executionDir(executionID), "latest.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// DeleteCheckpoint removes all checkpoint data for an execution.
func (c *FileCheckpointer) DeleteCheckpoint(ctx context.Context, executionID string) error {
	if err := os.RemoveAll(c.executionDir(executionID)); err != nil {
		return fmt.Errorf("failed to delete execution directory: %w", err)
	}
	return nil
}

// ListExecutions returns summaries of all stored executions, newest first.
// Executions whose latest checkpoint cannot be read are skipped.
func (c *FileCheckpointer) ListExecutions(ctx context.Context) ([]*ExecutionSummary, error) {
	entries, err := os.ReadDir(c.dataDir)
	if os.IsNotExist(err) {
		return []*ExecutionSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	var summaries []*ExecutionSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		checkpoint, err := c.LoadCheckpoint(ctx, entry.Name())
		if err != nil || checkpoint == nil {
			continue
		}
		summary := &ExecutionSummary{
			ExecutionID:  checkpoint.ExecutionID,
			WorkflowName: checkpoint.WorkflowName,
			Status:       checkpoint.Status,
			StartTime:    checkpoint.StartTime,
			EndTime:      checkpoint.EndTime,
			Error:        checkpoint.Error,
		}
		if !checkpoint.EndTime.IsZero() {
			summary.Duration = checkpoint.EndTime.Sub(checkpoint.StartTime)
		} else {
			summary.Duration = checkpoint.CheckpointAt.Sub(checkpoint.StartTime)
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
	return summaries, nil
}
