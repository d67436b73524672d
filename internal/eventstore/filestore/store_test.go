package filestore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otto/internal/eventstore"
)

func openTestStore(t *testing.T) eventstore.Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestAppendAssignsGlobalIDsAndStreamSequences(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Append(ctx, "task-a", []eventstore.Event{
		{Type: "TaskCreated", Payload: map[string]string{"title": "a"}},
		{Type: "TaskStarted"},
	})
	require.NoError(t, err)
	second, err := s.Append(ctx, "task-b", []eventstore.Event{{Type: "TaskCreated"}})
	require.NoError(t, err)
	third, err := s.Append(ctx, "task-a", []eventstore.Event{{Type: "TaskCompleted"}})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, int64(2), first[1].ID)
	assert.Equal(t, int64(3), second[0].ID)
	assert.Equal(t, int64(4), third[0].ID)

	// Per-stream sequences are contiguous from 1 regardless of interleaving.
	assert.Equal(t, int64(1), first[0].Seq)
	assert.Equal(t, int64(2), first[1].Seq)
	assert.Equal(t, int64(1), second[0].Seq)
	assert.Equal(t, int64(3), third[0].Seq)
}

func TestReadAllReturnsGlobalOrderAfterCursor(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Append(ctx, "task-a", []eventstore.Event{{Type: "One"}, {Type: "Two"}})
	require.NoError(t, err)
	_, err = s.Append(ctx, "task-b", []eventstore.Event{{Type: "Three"}})
	require.NoError(t, err)

	all, err := s.ReadAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].ID, all[i-1].ID)
	}

	tail, err := s.ReadAll(ctx, all[1].ID)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "Three", tail[0].Type)
}

func TestReadStreamFiltersAndOrdersBySeq(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Append(ctx, "task-a", []eventstore.Event{{Type: "One"}})
	require.NoError(t, err)
	_, err = s.Append(ctx, "task-b", []eventstore.Event{{Type: "Noise"}})
	require.NoError(t, err)
	_, err = s.Append(ctx, "task-a", []eventstore.Event{{Type: "Two"}, {Type: "Three"}})
	require.NoError(t, err)

	events, err := s.ReadStream(ctx, "task-a", 1)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"One", "Two", "Three"}, []string{events[0].Type, events[1].Type, events[2].Type})

	fromTwo, err := s.ReadStream(ctx, "task-a", 2)
	require.NoError(t, err)
	require.Len(t, fromTwo, 2)
	assert.Equal(t, "Two", fromTwo[0].Type)
}

func TestReadByID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	stored, err := s.Append(ctx, "task-a", []eventstore.Event{{Type: "One"}})
	require.NoError(t, err)

	ev, err := s.ReadByID(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "One", ev.Type)

	_, err = s.ReadByID(ctx, 999)
	assert.Error(t, err)
}

func TestProjectionLatestByNameWins(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cp, err := s.GetProjection(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cp.CursorEventID)
	assert.Nil(t, cp.State)

	require.NoError(t, s.SaveProjection(ctx, "tasks", 3, []byte(`{"n":1}`)))
	require.NoError(t, s.SaveProjection(ctx, "tasks", 7, []byte(`{"n":2}`)))
	require.NoError(t, s.SaveProjection(ctx, "other", 5, []byte(`{"n":9}`)))

	cp, err = s.GetProjection(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cp.CursorEventID)
	assert.JSONEq(t, `{"n":2}`, string(cp.State))
}

func TestReopenPreservesLogAndSequencing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Append(ctx, "task-a", []eventstore.Event{{Type: "One"}, {Type: "Two"}})
	require.NoError(t, err)
	require.NoError(t, s.SaveProjection(ctx, "tasks", 2, []byte(`{"ok":true}`)))

	reopened, err := Open(dir)
	require.NoError(t, err)

	all, err := reopened.ReadAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	stored, err := reopened.Append(ctx, "task-a", []eventstore.Event{{Type: "Three"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored[0].ID)
	assert.Equal(t, int64(3), stored[0].Seq)

	cp, err := reopened.GetProjection(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cp.CursorEventID)
}

func TestWatchNotifiesUntilCanceled(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var mu sync.Mutex
	var seen []string
	cancel := s.Watch(func(events []eventstore.StoredEvent) {
		mu.Lock()
		defer mu.Unlock()
		for _, ev := range events {
			seen = append(seen, ev.Type)
		}
	})

	_, err := s.Append(ctx, "task-a", []eventstore.Event{{Type: "One"}})
	require.NoError(t, err)

	cancel()
	_, err = s.Append(ctx, "task-a", []eventstore.Event{{Type: "Two"}})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"One"}, seen)
}

func TestConcurrentAppendsKeepSequencesContiguous(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	const writers = 8
	const perWriter = 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Append(ctx, "shared", []eventstore.Event{{Type: "Tick"}})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	events, err := s.ReadStream(ctx, "shared", 1)
	require.NoError(t, err)
	require.Len(t, events, writers*perWriter)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}
