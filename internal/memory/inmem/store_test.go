package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/memgate/pkg/types"
)

func TestGetOrCreate_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := New()

	first, err := store.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	second, err := store.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, first)

	// No record is persisted until a turn is written.
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommitAndGet(t *testing.T) {
	ctx := context.Background()
	store := New()
	history := []types.Message{
		types.SystemMessage("prompt"),
		types.UserMessage("hello"),
		types.AssistantMessage("hi"),
	}

	require.NoError(t, store.Commit(ctx, "user-1", history, time.Now()))

	got, err := store.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, history, got)

	// Returned slice is isolated from store state.
	got[0].Content = "mutated"
	again, err := store.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "prompt", again[0].Content)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	require.NoError(t, store.Commit(ctx, "stale", []types.Message{types.UserMessage("old")}, now.Add(-3*time.Hour)))
	require.NoError(t, store.Commit(ctx, "fresh", []types.Message{types.UserMessage("new")}, now.Add(-30*time.Minute)))

	expired, err := store.ExpireStale(ctx, now, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	gone, err := store.GetOrCreate(ctx, "stale")
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := store.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "new", kept[0].Content)
}

func TestTouch_ExtendsLifetime(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	require.NoError(t, store.Commit(ctx, "user-1", []types.Message{types.UserMessage("q")}, now.Add(-3*time.Hour)))
	require.NoError(t, store.Touch(ctx, "user-1", now))

	expired, err := store.ExpireStale(ctx, now, 2*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, expired)

	// Touch did not change the stored messages.
	got, err := store.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q", got[0].Content)
}

func TestTouch_CreatesEmptyRecord(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Touch(ctx, "user-1", time.Now()))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Commit(ctx, "user-1", []types.Message{types.UserMessage("q")}, time.Now()))
	require.NoError(t, store.Clear(ctx, "user-1"))
	require.NoError(t, store.Clear(ctx, "absent"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	store := New()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Commit(ctx, key, []types.Message{types.UserMessage("q")}, time.Now()))
	}
	require.NoError(t, store.ClearAll(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
