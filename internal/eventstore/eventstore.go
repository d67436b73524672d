// Package eventstore defines the append-only domain event log the engine is
// built on. Events carry a global monotonic ID (the sole total order for
// replay and audit) and a contiguous per-stream sequence starting at 1.
package eventstore

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a domain event before it has been assigned identifiers.
type Event struct {
	Type    string
	Payload any
}

// StoredEvent is an immutable appended event.
type StoredEvent struct {
	ID        int64           `json:"id"`
	StreamID  string          `json:"stream_id"`
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DecodePayload unmarshals the event payload into out.
func (e StoredEvent) DecodePayload(out any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, out)
}

// Checkpoint is a named projection cursor plus its folded state.
type Checkpoint struct {
	Name          string          `json:"name"`
	CursorEventID int64           `json:"cursor_event_id"`
	State         json.RawMessage `json:"state,omitempty"`
	SavedAt       time.Time       `json:"saved_at"`
}

// Store is the append-only, per-stream-sequenced event log plus named
// projection checkpoints. Appends are serialized per process; reads are
// pure queries over the immutable log.
type Store interface {
	// Append assigns the next global IDs and per-stream sequences as a
	// single-writer atomic step, persists, and returns the stored rows.
	Append(ctx context.Context, streamID string, events []Event) ([]StoredEvent, error)

	// ReadAll returns every event with ID > fromIDExclusive, ascending by ID.
	ReadAll(ctx context.Context, fromIDExclusive int64) ([]StoredEvent, error)

	// ReadStream returns a stream's events with Seq >= fromSeqInclusive,
	// ascending by Seq.
	ReadStream(ctx context.Context, streamID string, fromSeqInclusive int64) ([]StoredEvent, error)

	// ReadByID returns the single event with the given global ID.
	ReadByID(ctx context.Context, id int64) (*StoredEvent, error)

	// GetProjection returns the latest checkpoint for name, or a zero
	// cursor with nil state when none was ever saved.
	GetProjection(ctx context.Context, name string) (Checkpoint, error)

	// SaveProjection appends a checkpoint; latest-by-name wins on read.
	SaveProjection(ctx context.Context, name string, cursorEventID int64, state json.RawMessage) error

	// Watch registers fn to be called after each successful append with the
	// newly stored events. The returned function cancels the subscription.
	Watch(fn func(events []StoredEvent)) (cancel func())
}
