package services

import (
	"context"
	"testing"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisProgressStore(t *testing.T) {
	ctx := context.Background()

	t.Run("LatestSnapshotAndCompletion", func(t *testing.T) {
		mr, rc := newTestRedis(t)
		store := NewRedisProgressStore(rc, "test:", time.Hour, nil)

		latest, err := store.Latest(ctx, "MULTI1")
		require.NoError(t, err)
		assert.Nil(t, latest)

		require.NoError(t, store.Progress(ctx, dto.BatchProgress{BatchID: "MULTI1", Completed: 1, Total: 3}))
		require.NoError(t, store.Progress(ctx, dto.BatchProgress{BatchID: "MULTI1", Completed: 2, Total: 3}))

		latest, err = store.Latest(ctx, "MULTI1")
		require.NoError(t, err)
		require.NotNil(t, latest.Progress)
		assert.Equal(t, 2, latest.Progress.Completed)
		assert.False(t, latest.Done)
		assert.Equal(t, time.Hour, mr.TTL("test:batch_progress:MULTI1"))

		require.NoError(t, store.Completed(ctx, dto.BatchSummary{BatchID: "MULTI1", Status: "completed", Completed: 3}))
		latest, err = store.Latest(ctx, "MULTI1")
		require.NoError(t, err)
		require.NotNil(t, latest.Summary)
		assert.True(t, latest.Done)
		assert.Equal(t, "completed", latest.Summary.Status)
		require.NotNil(t, latest.Progress)
		assert.Equal(t, 2, latest.Progress.Completed)
	})

	t.Run("SubscribeReceivesPublishedUpdates", func(t *testing.T) {
		_, rc := newTestRedis(t)
		store := NewRedisProgressStore(rc, "test:", time.Hour, nil)

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		updates, err := store.Subscribe(subCtx, "MULTI2")
		require.NoError(t, err)

		require.NoError(t, store.Progress(ctx, dto.BatchProgress{BatchID: "MULTI2", Completed: 1, Total: 2}))

		select {
		case got := <-updates:
			require.NotNil(t, got.Progress)
			assert.Equal(t, 1, got.Progress.Completed)
		case <-time.After(2 * time.Second):
			t.Fatal("no update received")
		}

		cancel()
		for range updates {
		}
	})
}

func TestMemoryProgressStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProgressStore()

	latest, err := store.Latest(ctx, "MULTI1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.Progress(ctx, dto.BatchProgress{BatchID: "MULTI1", Completed: 1}))
	require.NoError(t, store.Completed(ctx, dto.BatchSummary{BatchID: "MULTI1", Status: "cancelled"}))

	latest, err = store.Latest(ctx, "MULTI1")
	require.NoError(t, err)
	assert.True(t, latest.Done)
	assert.Equal(t, 1, latest.Progress.Completed)
	assert.Equal(t, "cancelled", latest.Summary.Status)
}
