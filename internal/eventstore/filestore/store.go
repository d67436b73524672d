// Package filestore is the reference Store implementation: append-only
// line-delimited JSON, one file for events and one for projection
// checkpoints. The full log is indexed in memory at open, so reads are
// lock-free snapshots while appends serialize on a single mutex for ID and
// sequence assignment.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"otto/internal/eventstore"
)

const (
	eventsFile      = "events.jsonl"
	projectionsFile = "projections.jsonl"
)

type store struct {
	dir string

	mu      sync.RWMutex
	events  []eventstore.StoredEvent
	streams map[string][]int // stream id -> indexes into events
	byID    map[int64]int
	nextID  int64
	ckpts   map[string]eventstore.Checkpoint

	watchMu  sync.Mutex
	watchers map[int64]func([]eventstore.StoredEvent)
	watchSeq int64
}

// Open loads (or creates) a file-backed event store rooted at dir.
func Open(dir string) (eventstore.Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create event store dir: %w", err)
	}
	s := &store{
		dir:      dir,
		streams:  make(map[string][]int),
		byID:     make(map[int64]int),
		ckpts:    make(map[string]eventstore.Checkpoint),
		watchers: make(map[int64]func([]eventstore.StoredEvent)),
	}
	if err := s.loadEvents(); err != nil {
		return nil, err
	}
	if err := s.loadCheckpoints(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *store) loadEvents() error {
	f, err := os.Open(filepath.Join(s.dir, eventsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open events log: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev eventstore.StoredEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("corrupt events log line: %w", err)
		}
		s.index(ev)
	}
	return scanner.Err()
}

func (s *store) loadCheckpoints() error {
	f, err := os.Open(filepath.Join(s.dir, projectionsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open projections log: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var cp eventstore.Checkpoint
		if err := json.Unmarshal(line, &cp); err != nil {
			return fmt.Errorf("corrupt projections log line: %w", err)
		}
		// Latest-by-name wins.
		s.ckpts[cp.Name] = cp
	}
	return scanner.Err()
}

func (s *store) index(ev eventstore.StoredEvent) {
	idx := len(s.events)
	s.events = append(s.events, ev)
	s.streams[ev.StreamID] = append(s.streams[ev.StreamID], idx)
	s.byID[ev.ID] = idx
	if ev.ID >= s.nextID {
		s.nextID = ev.ID + 1
	}
}

func (s *store) Append(ctx context.Context, streamID string, events []eventstore.Event) ([]eventstore.StoredEvent, error) {
	if streamID == "" {
		return nil, fmt.Errorf("stream id is required")
	}
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.nextID == 0 {
		s.nextID = 1
	}
	seq := int64(len(s.streams[streamID]))
	now := time.Now().UTC()

	stored := make([]eventstore.StoredEvent, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("encode %s payload: %w", ev.Type, err)
		}
		seq++
		stored = append(stored, eventstore.StoredEvent{
			ID:        s.nextID,
			StreamID:  streamID,
			Seq:       seq,
			Type:      ev.Type,
			Payload:   payload,
			CreatedAt: now,
		})
		s.nextID++
	}

	if err := s.appendLines(eventsFile, stored); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	for _, ev := range stored {
		s.index(ev)
	}
	s.mu.Unlock()

	s.notify(stored)
	return stored, nil
}

func appendAsLines[T any](path string, rows []T) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Sync()
}

func (s *store) appendLines(name string, rows []eventstore.StoredEvent) error {
	return appendAsLines(filepath.Join(s.dir, name), rows)
}

func (s *store) ReadAll(ctx context.Context, fromIDExclusive int64) ([]eventstore.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []eventstore.StoredEvent
	for _, ev := range s.events {
		if ev.ID > fromIDExclusive {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *store) ReadStream(ctx context.Context, streamID string, fromSeqInclusive int64) ([]eventstore.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []eventstore.StoredEvent
	for _, idx := range s.streams[streamID] {
		if ev := s.events[idx]; ev.Seq >= fromSeqInclusive {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *store) ReadByID(ctx context.Context, id int64) (*eventstore.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("event %d not found", id)
	}
	ev := s.events[idx]
	return &ev, nil
}

func (s *store) GetProjection(ctx context.Context, name string) (eventstore.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return eventstore.Checkpoint{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.ckpts[name]
	if !ok {
		return eventstore.Checkpoint{Name: name}, nil
	}
	return cp, nil
}

func (s *store) SaveProjection(ctx context.Context, name string, cursorEventID int64, state json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := eventstore.Checkpoint{
		Name:          name,
		CursorEventID: cursorEventID,
		State:         state,
		SavedAt:       time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appendAsLines(filepath.Join(s.dir, projectionsFile), []eventstore.Checkpoint{cp}); err != nil {
		return err
	}
	s.ckpts[name] = cp
	return nil
}

func (s *store) Watch(fn func(events []eventstore.StoredEvent)) func() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchSeq++
	id := s.watchSeq
	s.watchers[id] = fn
	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, id)
	}
}

// notify runs outside the append lock so a watcher may read the store.
func (s *store) notify(events []eventstore.StoredEvent) {
	s.watchMu.Lock()
	fns := make([]func([]eventstore.StoredEvent), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range fns {
		fn(events)
	}
}
