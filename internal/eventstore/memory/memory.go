// Package memory provides in-memory implementations of the event store
// contracts. Used by tests and for single-process development runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

// EventLog is an in-memory, mutex-guarded event log.
type EventLog struct {
	mu     sync.RWMutex
	events map[string][]eventstore.Event
}

// NewEventLog creates an empty in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{events: make(map[string][]eventstore.Event)}
}

func streamKey(aggregateType, aggregateID string) string {
	return aggregateType + "/" + aggregateID
}

// Append stores the event, enforcing strictly sequential versions per stream.
func (l *EventLog) Append(_ context.Context, event eventstore.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := streamKey(event.AggregateType, event.AggregateID)
	stream := l.events[key]

	expected := int64(len(stream)) + 1
	if event.Version != expected {
		if event.Version <= int64(len(stream)) {
			return fmt.Errorf("append %s version %d: %w", key, event.Version, eventstore.ErrVersionConflict)
		}
		return fmt.Errorf("append %s: non-sequential version %d, expected %d", key, event.Version, expected)
	}

	l.events[key] = append(stream, event)
	return nil
}

// Load returns the stream's events with Version >= fromVersion.
func (l *EventLog) Load(_ context.Context, aggregateType, aggregateID string, fromVersion int64) ([]eventstore.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stream := l.events[streamKey(aggregateType, aggregateID)]
	out := make([]eventstore.Event, 0, len(stream))
	for _, ev := range stream {
		if ev.Version >= fromVersion {
			out = append(out, ev)
		}
	}
	return out, nil
}

// SnapshotStore is an in-memory snapshot store.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]eventstore.Snapshot
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]eventstore.Snapshot)}
}

// Save replaces the stored snapshot for the aggregate instance.
func (s *SnapshotStore) Save(_ context.Context, snapshot eventstore.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[streamKey(snapshot.AggregateType, snapshot.AggregateID)] = snapshot
	return nil
}

// Load returns the stored snapshot, or (nil, nil) when none exists.
func (s *SnapshotStore) Load(_ context.Context, aggregateType, aggregateID string) (*eventstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[streamKey(aggregateType, aggregateID)]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}
