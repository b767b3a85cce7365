// Package redis implements the snapshot store on Redis. Snapshots are cached
// state, not the source of truth, so they carry a TTL and a cold miss just
// means replaying the full event stream.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

// DefaultTTL is applied when the store is created with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

type snapshotRecord struct {
	Version   int64           `json:"version"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// SnapshotStore persists one snapshot per aggregate instance under
// snapshot:<type>:<id>.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore creates a Redis-backed snapshot store.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(aggregateType, aggregateID string) string {
	return fmt.Sprintf("snapshot:%s:%s", aggregateType, aggregateID)
}

// Save overwrites the instance's snapshot and refreshes its TTL.
func (s *SnapshotStore) Save(ctx context.Context, snapshot eventstore.Snapshot) error {
	data, err := json.Marshal(snapshotRecord{
		Version:   snapshot.Version,
		State:     snapshot.State,
		CreatedAt: snapshot.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := snapshotKey(snapshot.AggregateType, snapshot.AggregateID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Load returns the instance's snapshot, or (nil, nil) when the key is absent
// or expired.
func (s *SnapshotStore) Load(ctx context.Context, aggregateType, aggregateID string) (*eventstore.Snapshot, error) {
	key := snapshotKey(aggregateType, aggregateID)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", key, err)
	}

	return &eventstore.Snapshot{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       rec.Version,
		State:         rec.State,
		CreatedAt:     rec.CreatedAt,
	}, nil
}
