// Package events reads the event calendar owned by the events service. The
// scheduled sweeps use it to find reminder, rating and draft candidates.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
)

// Event is the part of an event the sweeps need.
type Event struct {
	ID        string    `db:"id" json:"id"`
	HostID    string    `db:"host_id" json:"host_id"`
	Title     string    `db:"title" json:"title"`
	Status    string    `db:"status" json:"status"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Source is implemented by the postgres and in-memory stores.
type Source interface {
	// StartingBetween returns published events with from <= starts_at < to.
	StartingBetween(ctx context.Context, from, to time.Time) ([]Event, error)
	// EndedBetween returns published events with from <= ends_at <= to.
	EndedBetween(ctx context.Context, from, to time.Time) ([]Event, error)
	// DraftsCreatedBefore returns drafts created before cutoff.
	DraftsCreatedBefore(ctx context.Context, cutoff time.Time) ([]Event, error)
	// Attendees returns the attendee ids of each of the given events.
	Attendees(ctx context.Context, eventIDs []string) (map[string][]string, error)
}

const selectEvent = `SELECT id, host_id, title, status, starts_at, ends_at, created_at FROM events`

// PostgresStore reads events with sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) StartingBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.selectEvents(ctx, "list upcoming events",
		selectEvent+` WHERE status = $1 AND starts_at >= $2 AND starts_at < $3 ORDER BY starts_at, id`,
		StatusPublished, from, to)
}

func (s *PostgresStore) EndedBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.selectEvents(ctx, "list ended events",
		selectEvent+` WHERE status = $1 AND ends_at >= $2 AND ends_at <= $3 ORDER BY ends_at, id`,
		StatusPublished, from, to)
}

func (s *PostgresStore) DraftsCreatedBefore(ctx context.Context, cutoff time.Time) ([]Event, error) {
	return s.selectEvents(ctx, "list stale drafts",
		selectEvent+` WHERE status = $1 AND created_at < $2 ORDER BY created_at, id`,
		StatusDraft, cutoff)
}

func (s *PostgresStore) Attendees(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		EventID string `db:"event_id"`
		UserID  string `db:"user_id"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT event_id, user_id FROM event_attendees
		WHERE event_id = ANY($1)
		ORDER BY event_id, user_id`, pq.Array(eventIDs))
	if err != nil {
		return nil, apperr.Upstream("list attendees", err)
	}
	for _, r := range rows {
		out[r.EventID] = append(out[r.EventID], r.UserID)
	}
	return out, nil
}

func (s *PostgresStore) selectEvents(ctx context.Context, op, query string, args ...any) ([]Event, error) {
	var out []Event
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, apperr.Upstream(op, err)
	}
	return out, nil
}

// Schema is the shape of the event tables this package reads.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	host_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	starts_at  TIMESTAMPTZ NOT NULL,
	ends_at    TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events (status, starts_at);
CREATE INDEX IF NOT EXISTS idx_events_ends_at ON events (status, ends_at);

CREATE TABLE IF NOT EXISTS event_attendees (
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id  TEXT NOT NULL,
	PRIMARY KEY (event_id, user_id)
);
`

// Migrate creates the event tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate event tables: %w", err)
	}
	return nil
}
