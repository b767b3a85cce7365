package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

func event(aggregateID string, version int64, eventType string) eventstore.Event {
	return eventstore.Event{
		AggregateType: "cart",
		AggregateID:   aggregateID,
		Version:       version,
		EventType:     eventType,
		Payload:       []byte(`{}`),
	}
}

func TestEventLogAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	log := NewEventLog()

	require.NoError(t, log.Append(ctx, event("user-1", 1, "item_added")))
	require.NoError(t, log.Append(ctx, event("user-1", 2, "item_removed")))
	require.NoError(t, log.Append(ctx, event("user-2", 1, "item_added")))

	events, err := log.Load(ctx, "cart", "user-1", 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "item_added", events[0].EventType)
	assert.Equal(t, int64(2), events[1].Version)

	tail, err := log.Load(ctx, "cart", "user-1", 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "item_removed", tail[0].EventType)
}

func TestEventLogVersionConflict(t *testing.T) {
	ctx := context.Background()
	log := NewEventLog()

	require.NoError(t, log.Append(ctx, event("user-1", 1, "item_added")))

	err := log.Append(ctx, event("user-1", 1, "item_added"))
	require.Error(t, err)
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
}

func TestEventLogRejectsVersionGap(t *testing.T) {
	ctx := context.Background()
	log := NewEventLog()

	require.NoError(t, log.Append(ctx, event("user-1", 1, "item_added")))
	assert.Error(t, log.Append(ctx, event("user-1", 3, "item_added")))
}

func TestEventLogLoadEmptyStream(t *testing.T) {
	events, err := NewEventLog().Load(context.Background(), "cart", "missing", 1)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	missing, err := store.Load(ctx, "cart", "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Save(ctx, eventstore.Snapshot{
		AggregateType: "cart",
		AggregateID:   "user-1",
		Version:       5,
		State:         []byte(`{"status":"SHOPPING"}`),
	}))

	snap, err := store.Load(ctx, "cart", "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(5), snap.Version)

	require.NoError(t, store.Save(ctx, eventstore.Snapshot{
		AggregateType: "cart",
		AggregateID:   "user-1",
		Version:       10,
		State:         []byte(`{"status":"RESERVING"}`),
	}))

	snap, err = store.Load(ctx, "cart", "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(10), snap.Version)
}
