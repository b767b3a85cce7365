// Package runtime hosts event-sourced aggregate instances in process. It
// guarantees serialized command execution per instance, lazy activation by
// snapshot-plus-replay, and append-before-acknowledge durability: a command's
// event is persisted to the log before the new state becomes observable.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

// DefaultSnapshotEvery is the snapshot cadence used when none is configured.
const DefaultSnapshotEvery = 20

// Entity is the aggregate contract the runtime hosts. Implementations decode
// and fold stored events, and serialize full state for snapshots.
type Entity interface {
	ApplyStored(event eventstore.Event) error
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Change is a proposed event produced by a command handler, ready for the
// event log. A nil Change means the command succeeded without emitting.
type Change struct {
	EventType string
	Payload   []byte
}

// Manager hosts all instances of one aggregate type.
type Manager[E Entity] struct {
	aggregateType string
	newEntity     func(id string) E
	log           eventstore.EventLog
	snapshots     eventstore.SnapshotStore
	snapshotEvery int64
	logger        *slog.Logger

	mu        sync.Mutex
	instances map[string]*instance[E]
}

type instance[E Entity] struct {
	mu      sync.Mutex
	entity  E
	version int64
	loaded  bool
}

// NewManager creates a manager for one aggregate type. newEntity must return
// the aggregate's initial state, since instances are created implicitly on
// first use. snapshotEvery <= 0 selects the default cadence.
func NewManager[E Entity](
	aggregateType string,
	newEntity func(id string) E,
	log eventstore.EventLog,
	snapshots eventstore.SnapshotStore,
	snapshotEvery int64,
	logger *slog.Logger,
) *Manager[E] {
	if snapshotEvery <= 0 {
		snapshotEvery = DefaultSnapshotEvery
	}
	return &Manager[E]{
		aggregateType: aggregateType,
		newEntity:     newEntity,
		log:           log,
		snapshots:     snapshots,
		snapshotEvery: snapshotEvery,
		logger:        logger,
		instances:     make(map[string]*instance[E]),
	}
}

// Execute runs a command against the instance with the given id, holding its
// lock for the duration, so commands on one instance never interleave. When
// the command returns a Change, the event is appended to the log and applied
// before Execute returns; a storage failure leaves state untouched.
func (m *Manager[E]) Execute(ctx context.Context, id string, command func(entity E) (*Change, error)) error {
	inst := m.instance(id)
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := m.ensureLoaded(ctx, inst, id); err != nil {
		return err
	}

	change, err := command(inst.entity)
	if err != nil {
		return err
	}
	if change == nil {
		return nil
	}

	stored := eventstore.Event{
		AggregateType: m.aggregateType,
		AggregateID:   id,
		Version:       inst.version + 1,
		EventType:     change.EventType,
		Payload:       change.Payload,
		CreatedAt:     time.Now().UTC(),
	}

	if err := m.log.Append(ctx, stored); err != nil {
		return fmt.Errorf("append %s/%s event: %w", m.aggregateType, id, err)
	}
	eventsAppended.WithLabelValues(m.aggregateType, change.EventType).Inc()

	if err := inst.entity.ApplyStored(stored); err != nil {
		// The event is durable but in-memory state is now suspect.
		// Evict so the next activation replays from the log.
		m.evict(id)
		return fmt.Errorf("apply %s/%s event %s: %w", m.aggregateType, id, change.EventType, err)
	}
	inst.version = stored.Version

	m.maybeSnapshot(ctx, inst, id)
	return nil
}

// View runs a read-only function against the instance's current state, under
// the same lock commands use. The callback must not retain references to the
// entity past its return.
func (m *Manager[E]) View(ctx context.Context, id string, fn func(entity E) error) error {
	inst := m.instance(id)
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := m.ensureLoaded(ctx, inst, id); err != nil {
		return err
	}
	return fn(inst.entity)
}

func (m *Manager[E]) instance(id string) *instance[E] {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[id]
	if !ok {
		inst = &instance[E]{entity: m.newEntity(id)}
		m.instances[id] = inst
		activeInstances.WithLabelValues(m.aggregateType).Inc()
	}
	return inst
}

func (m *Manager[E]) evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; ok {
		delete(m.instances, id)
		activeInstances.WithLabelValues(m.aggregateType).Dec()
	}
}

// ensureLoaded activates the instance on first access: restore the latest
// snapshot if one exists, then replay the event log tail. Must be called
// with inst.mu held.
func (m *Manager[E]) ensureLoaded(ctx context.Context, inst *instance[E], id string) error {
	if inst.loaded {
		return nil
	}

	if m.snapshots != nil {
		snap, err := m.snapshots.Load(ctx, m.aggregateType, id)
		if err != nil {
			// Snapshots are a replay shortcut. Fall back to the full log.
			m.logger.WarnContext(ctx, "snapshot load failed, replaying full stream",
				slog.String("aggregate_type", m.aggregateType),
				slog.String("aggregate_id", id),
				slog.String("error", err.Error()),
			)
		} else if snap != nil {
			if err := inst.entity.UnmarshalState(snap.State); err != nil {
				return fmt.Errorf("restore %s/%s snapshot: %w", m.aggregateType, id, err)
			}
			inst.version = snap.Version
		}
	}

	events, err := m.log.Load(ctx, m.aggregateType, id, inst.version+1)
	if err != nil {
		return fmt.Errorf("load %s/%s events: %w", m.aggregateType, id, err)
	}
	for _, ev := range events {
		if err := inst.entity.ApplyStored(ev); err != nil {
			return fmt.Errorf("replay %s/%s event %d: %w", m.aggregateType, id, ev.Version, err)
		}
		inst.version = ev.Version
	}

	inst.loaded = true
	return nil
}

// maybeSnapshot writes a snapshot at the configured cadence. Failures are
// logged, never surfaced: the command already succeeded.
func (m *Manager[E]) maybeSnapshot(ctx context.Context, inst *instance[E], id string) {
	if m.snapshots == nil || inst.version%m.snapshotEvery != 0 {
		return
	}

	state, err := inst.entity.MarshalState()
	if err != nil {
		m.logger.WarnContext(ctx, "snapshot marshal failed",
			slog.String("aggregate_type", m.aggregateType),
			slog.String("aggregate_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	err = m.snapshots.Save(ctx, eventstore.Snapshot{
		AggregateType: m.aggregateType,
		AggregateID:   id,
		Version:       inst.version,
		State:         state,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		m.logger.WarnContext(ctx, "snapshot save failed",
			slog.String("aggregate_type", m.aggregateType),
			slog.String("aggregate_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	snapshotsWritten.WithLabelValues(m.aggregateType).Inc()
}
