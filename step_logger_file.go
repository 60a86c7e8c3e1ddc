package dagflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStepLogger is an implementation of StepLogger that logs to a file.
// A file is created per execution. The file is formatted as newline-delimited JSON.
type FileStepLogger struct {
	directory string
}

func NewFileStepLogger(directory string) *FileStepLogger {
	return &FileStepLogger{directory: directory}
}

func (l *FileStepLogger) executionLogPath(executionID string) string {
	return filepath.Join(l.directory, fmt.Sprintf("%s.jsonl", executionID))
}

func (l *FileStepLogger) GetStepHistory(ctx context.Context, executionID string) ([]*StepLogEntry, error) {
	filePath := l.executionLogPath(executionID)
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var entries []*StepLogEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var entry StepLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (l *FileStepLogger) LogStep(ctx context.Context, entry *StepLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	filePath := l.executionLogPath(entry.ExecutionID)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
