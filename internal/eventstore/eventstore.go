// Package eventstore defines the persistence contracts for event-sourced
// aggregates: an append-only, per-instance ordered event log and a snapshot
// store used to bound replay time on activation.
package eventstore

import (
	"context"
	"errors"
	"time"
)

// ErrVersionConflict is returned by Append when an event with the same
// version already exists for the aggregate instance. Under the per-instance
// serialization guarantee this indicates a concurrent writer bug or a split
// runtime, never a normal race.
var ErrVersionConflict = errors.New("eventstore: version conflict")

// Event is a single stored domain event. Version is 1-based and strictly
// sequential per aggregate instance.
type Event struct {
	AggregateType string
	AggregateID   string
	Version       int64
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Snapshot is a point-in-time serialization of full aggregate state.
// Version is the version of the last event folded into State.
type Snapshot struct {
	AggregateType string
	AggregateID   string
	Version       int64
	State         []byte
	CreatedAt     time.Time
}

// EventLog is the durable, append-only event log.
type EventLog interface {
	// Append durably persists the event. It fails with ErrVersionConflict
	// if an event with the same (type, id, version) already exists.
	Append(ctx context.Context, event Event) error

	// Load returns all events for the aggregate instance with
	// Version >= fromVersion, in version order.
	Load(ctx context.Context, aggregateType, aggregateID string, fromVersion int64) ([]Event, error)
}

// SnapshotStore persists aggregate snapshots. Snapshots are an optimization:
// losing one only means replaying more events.
type SnapshotStore interface {
	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snapshot Snapshot) error

	// Load returns the latest snapshot for the aggregate instance, or
	// (nil, nil) when none exists.
	Load(ctx context.Context, aggregateType, aggregateID string) (*Snapshot, error)
}
