// Package postgres implements the durable event log on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

const uniqueViolationCode = "23505"

// DB is the subset of pgxpool.Pool used by the event log, extracted so tests
// can substitute pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventLog stores events in the events table, one row per event, with a
// primary key on (aggregate_type, aggregate_id, version) enforcing the
// per-instance ordering invariant at the database level.
type EventLog struct {
	db DB
}

// NewEventLog creates an event log backed by the given database handle.
func NewEventLog(db DB) *EventLog {
	return &EventLog{db: db}
}

// Append inserts the event. A primary key violation maps to
// eventstore.ErrVersionConflict.
func (l *EventLog) Append(ctx context.Context, event eventstore.Event) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO events (aggregate_type, aggregate_id, version, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.AggregateType, event.AggregateID, event.Version, event.EventType, event.Payload, event.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("append %s/%s version %d: %w",
				event.AggregateType, event.AggregateID, event.Version, eventstore.ErrVersionConflict)
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Load reads the instance's events starting at fromVersion, in version order.
func (l *EventLog) Load(ctx context.Context, aggregateType, aggregateID string, fromVersion int64) ([]eventstore.Event, error) {
	rows, err := l.db.Query(ctx, `
		SELECT aggregate_type, aggregate_id, version, event_type, payload, created_at
		FROM events
		WHERE aggregate_type = $1 AND aggregate_id = $2 AND version >= $3
		ORDER BY version
	`, aggregateType, aggregateID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []eventstore.Event
	for rows.Next() {
		var ev eventstore.Event
		if err := rows.Scan(&ev.AggregateType, &ev.AggregateID, &ev.Version, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
