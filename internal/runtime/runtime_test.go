package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
	"github.com/utafrali/ShoppingGo/internal/eventstore/memory"
)

// counter is a minimal aggregate for exercising the runtime.
type counter struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

type incremented struct {
	Amount int `json:"amount"`
}

func (c *counter) increment(amount int) (*Change, error) {
	if amount == 0 {
		return nil, nil
	}
	if amount < 0 {
		return nil, errors.New("amount must not be negative")
	}
	payload, err := json.Marshal(incremented{Amount: amount})
	if err != nil {
		return nil, err
	}
	return &Change{EventType: "incremented", Payload: payload}, nil
}

func (c *counter) ApplyStored(event eventstore.Event) error {
	if event.EventType != "incremented" {
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
	var ev incremented
	if err := json.Unmarshal(event.Payload, &ev); err != nil {
		return err
	}
	c.Total += ev.Amount
	return nil
}

func (c *counter) MarshalState() ([]byte, error)    { return json.Marshal(c) }
func (c *counter) UnmarshalState(data []byte) error { return json.Unmarshal(data, c) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCounterManager(log eventstore.EventLog, snaps eventstore.SnapshotStore, snapshotEvery int64) *Manager[*counter] {
	return NewManager("counter", func(id string) *counter {
		return &counter{ID: id}
	}, log, snaps, snapshotEvery, testLogger())
}

func total(t *testing.T, m *Manager[*counter], id string) int {
	t.Helper()
	var got int
	require.NoError(t, m.View(context.Background(), id, func(c *counter) error {
		got = c.Total
		return nil
	}))
	return got
}

func TestExecuteAppendsAndApplies(t *testing.T) {
	ctx := context.Background()
	log := memory.NewEventLog()
	m := newCounterManager(log, memory.NewSnapshotStore(), 100)

	require.NoError(t, m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(3) }))
	require.NoError(t, m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(4) }))

	assert.Equal(t, 7, total(t, m, "c-1"))

	events, err := log.Load(ctx, "counter", "c-1", 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Version)
	assert.Equal(t, int64(2), events[1].Version)
}

func TestCommandErrorAppendsNothing(t *testing.T) {
	ctx := context.Background()
	log := memory.NewEventLog()
	m := newCounterManager(log, memory.NewSnapshotStore(), 100)

	require.NoError(t, m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(3) }))
	require.Error(t, m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(-1) }))

	assert.Equal(t, 3, total(t, m, "c-1"))
	events, err := log.Load(ctx, "counter", "c-1", 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestNilChangeAppendsNothing(t *testing.T) {
	ctx := context.Background()
	log := memory.NewEventLog()
	m := newCounterManager(log, memory.NewSnapshotStore(), 100)

	require.NoError(t, m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(0) }))

	events, err := log.Load(ctx, "counter", "c-1", 1)
	require.NoError(t, err)
	assert.Empty(t, events)
}

type failingLog struct{}

func (failingLog) Append(context.Context, eventstore.Event) error { return errors.New("disk full") }
func (failingLog) Load(context.Context, string, string, int64) ([]eventstore.Event, error) {
	return nil, nil
}

func TestAppendFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	m := newCounterManager(failingLog{}, memory.NewSnapshotStore(), 100)

	err := m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(3) })
	require.Error(t, err)

	assert.Equal(t, 0, total(t, m, "c-1"))
}

func TestFreshManagerReplaysFromLog(t *testing.T) {
	ctx := context.Background()
	log := memory.NewEventLog()
	snaps := memory.NewSnapshotStore()

	m1 := newCounterManager(log, snaps, 100)
	for i := 0; i < 5; i++ {
		require.NoError(t, m1.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(2) }))
	}

	m2 := newCounterManager(log, snaps, 100)
	assert.Equal(t, 10, total(t, m2, "c-1"))
}

func TestSnapshotCadenceAndRestore(t *testing.T) {
	ctx := context.Background()
	log := memory.NewEventLog()
	snaps := memory.NewSnapshotStore()

	m1 := newCounterManager(log, snaps, 3)
	for i := 0; i < 7; i++ {
		require.NoError(t, m1.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(1) }))
	}

	// 7 events with a cadence of 3: latest snapshot is at version 6.
	snap, err := snaps.Load(ctx, "counter", "c-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(6), snap.Version)

	// A fresh manager restores the snapshot plus the one-event tail.
	m2 := newCounterManager(log, snaps, 3)
	assert.Equal(t, 7, total(t, m2, "c-1"))

	// The next command continues the version sequence past the snapshot.
	require.NoError(t, m2.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(1) }))
	events, err := log.Load(ctx, "counter", "c-1", 8)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(8), events[0].Version)
}

func TestConcurrentCommandsAreSerialized(t *testing.T) {
	ctx := context.Background()
	log := memory.NewEventLog()
	m := newCounterManager(log, memory.NewSnapshotStore(), 100)

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(1) })
		}()
	}
	wg.Wait()
	close(errs)

	// Serialized execution means no version conflicts and no lost updates.
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, workers, total(t, m, "c-1"))

	events, err := log.Load(ctx, "counter", "c-1", 1)
	require.NoError(t, err)
	require.Len(t, events, workers)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Version)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := newCounterManager(memory.NewEventLog(), memory.NewSnapshotStore(), 100)

	require.NoError(t, m.Execute(ctx, "c-1", func(c *counter) (*Change, error) { return c.increment(3) }))
	require.NoError(t, m.Execute(ctx, "c-2", func(c *counter) (*Change, error) { return c.increment(5) }))

	assert.Equal(t, 3, total(t, m, "c-1"))
	assert.Equal(t, 5, total(t, m, "c-2"))
}

func TestViewOfUnknownInstanceSeesInitialState(t *testing.T) {
	m := newCounterManager(memory.NewEventLog(), memory.NewSnapshotStore(), 100)
	assert.Equal(t, 0, total(t, m, "never-seen"))
}
