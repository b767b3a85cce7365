package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

func newTestStore(t *testing.T) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshotStore(client, time.Hour), mr
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(ctx, eventstore.Snapshot{
		AggregateType: "inventory",
		AggregateID:   "p-1",
		Version:       7,
		State:         []byte(`{"available":12}`),
		CreatedAt:     time.Now().UTC(),
	}))

	snap, err := store.Load(ctx, "inventory", "p-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(7), snap.Version)
	assert.JSONEq(t, `{"available":12}`, string(snap.State))
}

func TestLoadMissingSnapshot(t *testing.T) {
	store, _ := newTestStore(t)

	snap, err := store.Load(context.Background(), "cart", "nobody")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(ctx, eventstore.Snapshot{
		AggregateType: "cart", AggregateID: "user-1", Version: 5, State: []byte(`{"status":"SHOPPING"}`),
	}))
	require.NoError(t, store.Save(ctx, eventstore.Snapshot{
		AggregateType: "cart", AggregateID: "user-1", Version: 10, State: []byte(`{"status":"RESERVING"}`),
	}))

	snap, err := store.Load(ctx, "cart", "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(10), snap.Version)
}

func TestSnapshotExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Save(ctx, eventstore.Snapshot{
		AggregateType: "cart", AggregateID: "user-1", Version: 3, State: []byte(`{}`),
	}))

	mr.FastForward(2 * time.Hour)

	snap, err := store.Load(ctx, "cart", "user-1")
	require.NoError(t, err)
	assert.Nil(t, snap)
}
