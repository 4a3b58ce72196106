package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type snapshotBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type snapshotKeyer interface {
	FleetSnapshotKey(scope string) string
}

// SnapshotStore persists the latest snapshot per scope.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, scope string) (*Snapshot, error)
}

// RedisSnapshotStore keeps snapshots as JSON under a TTL so stale data ages out
// when no worker is running.
type RedisSnapshotStore struct {
	backend snapshotBackend
	keyer   snapshotKeyer
	ttl     time.Duration
}

// redisClient is satisfied by pkg/redis.Client.
type redisClient interface {
	snapshotBackend
	snapshotKeyer
}

func NewRedisSnapshotStore(client redisClient, ttl time.Duration) (*RedisSnapshotStore, error) {
	if client == nil {
		return nil, errors.New("redis client required for snapshot store")
	}
	if ttl <= 0 {
		return nil, errors.New("snapshot ttl must be positive")
	}
	return &RedisSnapshotStore{backend: client, keyer: client, ttl: ttl}, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return errors.New("snapshot required")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.backend.Set(ctx, s.keyer.FleetSnapshotKey(snapshot.Scope), payload, s.ttl)
}

// Load returns nil, nil when no snapshot is cached for scope.
func (s *RedisSnapshotStore) Load(ctx context.Context, scope string) (*Snapshot, error) {
	raw, err := s.backend.Get(ctx, s.keyer.FleetSnapshotKey(scope))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}
