package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultBatchLockTTL bounds how long a crashed runner can hold a batch
const DefaultBatchLockTTL = 2 * time.Minute

// compare-and-delete / compare-and-expire so a runner only touches a lock it owns
var (
	releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisBatchLocker holds per-batch locks in Redis so that only one process runs a batch
type RedisBatchLocker struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	owner  string
}

// NewRedisBatchLocker creates a locker whose keys are "<prefix>batch_lock:<batch id>"
func NewRedisBatchLocker(rc *redis.Client, prefix string, ttl time.Duration) *RedisBatchLocker {
	if ttl <= 0 {
		ttl = DefaultBatchLockTTL
	}
	return &RedisBatchLocker{
		rc:     rc,
		prefix: prefix,
		ttl:    ttl,
		owner:  uuid.NewString(),
	}
}

func (l *RedisBatchLocker) key(batchID string) string {
	return l.prefix + "batch_lock:" + batchID
}

// Acquire takes the lock with SET NX PX; false means another owner holds it
func (l *RedisBatchLocker) Acquire(ctx context.Context, batchID string) (bool, error) {
	ok, err := l.rc.SetNX(ctx, l.key(batchID), l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	return ok, nil
}

// Refresh extends the lock TTL while the batch keeps running
func (l *RedisBatchLocker) Refresh(ctx context.Context, batchID string) error {
	res, err := refreshLockScript.Run(ctx, l.rc, []string{l.key(batchID)}, l.owner, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to refresh batch lock: %w", err)
	}
	if res == 0 {
		return fmt.Errorf("batch lock %s is no longer held", batchID)
	}
	return nil
}

func (l *RedisBatchLocker) Release(ctx context.Context, batchID string) error {
	if err := releaseLockScript.Run(ctx, l.rc, []string{l.key(batchID)}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release batch lock: %w", err)
	}
	return nil
}

// MemoryBatchLocker is an in-process lock set used when Redis is not configured
type MemoryBatchLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryBatchLocker() *MemoryBatchLocker {
	return &MemoryBatchLocker{held: make(map[string]struct{})}
}

func (l *MemoryBatchLocker) Acquire(_ context.Context, batchID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[batchID]; ok {
		return false, nil
	}
	l.held[batchID] = struct{}{}
	return true, nil
}

func (l *MemoryBatchLocker) Refresh(_ context.Context, _ string) error {
	return nil
}

func (l *MemoryBatchLocker) Release(_ context.Context, batchID string) error {
	l.mu.Lock()
	delete(l.held, batchID)
	l.mu.Unlock()
	return nil
}
