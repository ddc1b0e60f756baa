package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultProgressTTL keeps finished batch snapshots around for late pollers
const DefaultProgressTTL = 24 * time.Hour

// ProgressStore keeps the latest progress snapshot of every batch and fans it out
type ProgressStore interface {
	Progress(ctx context.Context, progress dto.BatchProgress) error
	Completed(ctx context.Context, summary dto.BatchSummary) error
	Latest(ctx context.Context, batchID string) (*dto.BatchProgressResponse, error)
}

// progressEnvelope is the stored and published JSON value
type progressEnvelope struct {
	Progress *dto.BatchProgress `json:"progress,omitempty"`
	Summary  *dto.BatchSummary  `json:"summary,omitempty"`
}

func (e progressEnvelope) response() *dto.BatchProgressResponse {
	return &dto.BatchProgressResponse{
		Progress: e.Progress,
		Summary:  e.Summary,
		Done:     e.Summary != nil,
	}
}

// RedisProgressStore SETs the latest snapshot under a key and PUBLISHes it on a channel
type RedisProgressStore struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisProgressStore(rc *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisProgressStore {
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProgressStore{rc: rc, prefix: prefix, ttl: ttl, logger: logger}
}

func (s *RedisProgressStore) key(batchID string) string {
	return s.prefix + "batch_progress:" + batchID
}

// Channel is the pub/sub channel carrying updates of a batch
func (s *RedisProgressStore) Channel(batchID string) string {
	return s.prefix + "batch_progress_updates:" + batchID
}

func (s *RedisProgressStore) Progress(ctx context.Context, progress dto.BatchProgress) error {
	return s.store(ctx, progress.BatchID, progressEnvelope{Progress: &progress})
}

func (s *RedisProgressStore) Completed(ctx context.Context, summary dto.BatchSummary) error {
	env := progressEnvelope{Summary: &summary}
	if latest, err := s.Latest(ctx, summary.BatchID); err == nil && latest != nil {
		env.Progress = latest.Progress
	}
	return s.store(ctx, summary.BatchID, env)
}

func (s *RedisProgressStore) store(ctx context.Context, batchID string, env progressEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	pipe := s.rc.TxPipeline()
	pipe.Set(ctx, s.key(batchID), payload, s.ttl)
	pipe.Publish(ctx, s.Channel(batchID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

// Latest returns the stored snapshot, or nil when the batch has none yet
func (s *RedisProgressStore) Latest(ctx context.Context, batchID string) (*dto.BatchProgressResponse, error) {
	bs, err := s.rc.Get(ctx, s.key(batchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	var env progressEnvelope
	if err := json.Unmarshal(bs, &env); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return env.response(), nil
}

// Subscribe streams decoded updates of a batch until ctx is done
func (s *RedisProgressStore) Subscribe(ctx context.Context, batchID string) (<-chan dto.BatchProgressResponse, error) {
	sub := s.rc.Subscribe(ctx, s.Channel(batchID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to progress: %w", err)
	}

	out := make(chan dto.BatchProgressResponse)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env progressEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					s.logger.Debug("Dropping malformed progress update", zap.Error(err))
					continue
				}
				select {
				case out <- *env.response():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryProgressStore keeps snapshots in process memory
type MemoryProgressStore struct {
	mu        sync.RWMutex
	snapshots map[string]progressEnvelope
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{snapshots: make(map[string]progressEnvelope)}
}

func (s *MemoryProgressStore) Progress(_ context.Context, progress dto.BatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := s.snapshots[progress.BatchID]
	env.Progress = &progress
	s.snapshots[progress.BatchID] = env
	return nil
}

func (s *MemoryProgressStore) Completed(_ context.Context, summary dto.BatchSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := s.snapshots[summary.BatchID]
	env.Summary = &summary
	s.snapshots[summary.BatchID] = env
	return nil
}

func (s *MemoryProgressStore) Latest(_ context.Context, batchID string) (*dto.BatchProgressResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, ok := s.snapshots[batchID]
	if !ok {
		return nil, nil
	}
	return env.response(), nil
}
