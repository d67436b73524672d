package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Reducer folds one event into a projection state. It must be pure: the
// same state and event always produce the same result.
type Reducer[S any] func(state S, event StoredEvent) S

// Replay brings the named projection up to date: load the checkpoint, fold
// every event past its cursor, persist the new checkpoint, and return the
// folded state. Folding zero events is a no-op (the checkpoint is not
// rewritten), which makes replay idempotent.
func Replay[S any](ctx context.Context, store Store, name string, initial S, reduce Reducer[S]) (S, int64, error) {
	cp, err := store.GetProjection(ctx, name)
	if err != nil {
		return initial, 0, fmt.Errorf("load projection %q: %w", name, err)
	}

	state := initial
	if len(cp.State) > 0 {
		if err := json.Unmarshal(cp.State, &state); err != nil {
			return initial, 0, fmt.Errorf("decode projection %q state: %w", name, err)
		}
	}

	events, err := store.ReadAll(ctx, cp.CursorEventID)
	if err != nil {
		return state, cp.CursorEventID, fmt.Errorf("read events after %d: %w", cp.CursorEventID, err)
	}
	if len(events) == 0 {
		return state, cp.CursorEventID, nil
	}

	for _, ev := range events {
		state = reduce(state, ev)
	}
	cursor := events[len(events)-1].ID

	raw, err := json.Marshal(state)
	if err != nil {
		return state, cursor, fmt.Errorf("encode projection %q state: %w", name, err)
	}
	if err := store.SaveProjection(ctx, name, cursor, raw); err != nil {
		return state, cursor, fmt.Errorf("save projection %q: %w", name, err)
	}
	return state, cursor, nil
}
