package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestRedisBatchLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondOwnerIsRejected", func(t *testing.T) {
		_, rc := newTestRedis(t)
		first := NewRedisBatchLocker(rc, "test:", time.Minute)
		second := NewRedisBatchLocker(rc, "test:", time.Minute)

		ok, err := first.Acquire(ctx, "MULTI1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = second.Acquire(ctx, "MULTI1")
		require.NoError(t, err)
		assert.False(t, ok)

		// only the owner can release
		require.NoError(t, second.Release(ctx, "MULTI1"))
		ok, err = second.Acquire(ctx, "MULTI1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, first.Release(ctx, "MULTI1"))
		ok, err = second.Acquire(ctx, "MULTI1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("LockExpiresUnlessRefreshed", func(t *testing.T) {
		mr, rc := newTestRedis(t)
		locker := NewRedisBatchLocker(rc, "test:", 10*time.Second)
		other := NewRedisBatchLocker(rc, "test:", 10*time.Second)

		ok, err := locker.Acquire(ctx, "MULTI2")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 10*time.Second, mr.TTL("test:batch_lock:MULTI2"))

		mr.FastForward(8 * time.Second)
		require.NoError(t, locker.Refresh(ctx, "MULTI2"))
		mr.FastForward(8 * time.Second)
		assert.True(t, mr.Exists("test:batch_lock:MULTI2"))

		mr.FastForward(3 * time.Second)
		assert.False(t, mr.Exists("test:batch_lock:MULTI2"))
		assert.Error(t, locker.Refresh(ctx, "MULTI2"))

		ok, err = other.Acquire(ctx, "MULTI2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("RedisDown", func(t *testing.T) {
		mr, rc := newTestRedis(t)
		locker := NewRedisBatchLocker(rc, "test:", time.Minute)
		mr.Close()

		_, err := locker.Acquire(ctx, "MULTI3")
		assert.Error(t, err)
	})
}

func TestMemoryBatchLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryBatchLocker()

	ok, err := locker.Acquire(ctx, "MULTI1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = locker.Acquire(ctx, "MULTI1")
	assert.False(t, ok)

	ok, _ = locker.Acquire(ctx, "MULTI2")
	assert.True(t, ok)

	require.NoError(t, locker.Refresh(ctx, "MULTI1"))
	require.NoError(t, locker.Release(ctx, "MULTI1"))

	ok, _ = locker.Acquire(ctx, "MULTI1")
	assert.True(t, ok)
}
