// Package audit records tool-call telemetry as an append-only JSONL log,
// independent of the domain event store.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry types.
const (
	TypeToolCallRequested = "ToolCallRequested"
	TypeToolCallCompleted = "ToolCallCompleted"
)

// Payload carries the telemetry of one tool-call edge.
type Payload struct {
	TaskID     string         `json:"task_id,omitempty"`
	ToolName   string         `json:"tool_name"`
	Args       map[string]any `json:"args,omitempty"`
	Output     string         `json:"output,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// Entry is one immutable audit row.
type Entry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	Payload   Payload   `json:"payload"`
}

// Log is an append-only tool-call audit log backed by a JSONL file.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	nextID int64
}

// Open creates or continues an audit log at path, resuming the monotonic
// entry counter from the existing file.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	nextID := int64(1)
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range splitLines(data) {
			var e Entry
			if json.Unmarshal(line, &e) == nil && e.ID >= nextID {
				nextID = e.ID + 1
			}
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Log{file: file, nextID: nextID}, nil
}

// Record appends one entry and returns it with its assigned id.
func (l *Log) Record(entryType string, payload Payload) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:        l.nextID,
		CreatedAt: time.Now().UTC(),
		Type:      entryType,
		Payload:   payload,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encode audit entry: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return Entry{}, fmt.Errorf("write audit entry: %w", err)
	}
	l.nextID++
	return entry, nil
}

// Close releases the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
