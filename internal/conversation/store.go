// Package conversation persists and replays the ordered message history
// backing one task's agent context.
package conversation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"otto/internal/agent/ports"
)

// Store appends and reads ordered turns per task.
type Store interface {
	Append(ctx context.Context, taskID string, turns ...ports.Message) error
	History(ctx context.Context, taskID string) ([]ports.Message, error)
}

// FileStore keeps one JSONL file per task under a base directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(taskID string) string {
	return filepath.Join(s.dir, taskID+".jsonl")
}

// Append writes turns to the task's log in order. Missing timestamps are
// stamped at write time.
func (s *FileStore) Append(ctx context.Context, taskID string, turns ...ports.Message) error {
	if taskID == "" {
		return fmt.Errorf("task id is required")
	}
	if len(turns) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(taskID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open conversation log: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, turn := range turns {
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now().UTC()
		}
		if err := enc.Encode(turn); err != nil {
			return fmt.Errorf("write conversation turn: %w", err)
		}
	}
	return w.Flush()
}

// History returns every turn of the task in append order.
func (s *FileStore) History(ctx context.Context, taskID string) ([]ports.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(taskID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []ports.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var turn ports.Message
		if err := json.Unmarshal(line, &turn); err != nil {
			return nil, fmt.Errorf("corrupt conversation line for %s: %w", taskID, err)
		}
		out = append(out, turn)
	}
	return out, scanner.Err()
}
