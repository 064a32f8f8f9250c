package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/testinfra"
)

func TestPostgresStore(t *testing.T) {
	pg := testinfra.StartPostgres(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, pg.SQL))
	pg.Truncate(t, "event_attendees", "events")

	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	insert := `INSERT INTO events (id, host_id, title, status, starts_at, ends_at, created_at) VALUES ($1, 'host-1', $1, $2, $3, $4, $5)`
	pg.SQL.MustExec(insert, "tomorrow", StatusPublished, now.Add(24*time.Hour), now.Add(26*time.Hour), now.Add(-72*time.Hour))
	pg.SQL.MustExec(insert, "ended", StatusPublished, now.Add(-40*time.Hour), now.Add(-30*time.Hour), now.Add(-72*time.Hour))
	pg.SQL.MustExec(insert, "draft", StatusDraft, now.Add(72*time.Hour), now.Add(74*time.Hour), now.Add(-8*24*time.Hour))
	pg.SQL.MustExec(`INSERT INTO event_attendees (event_id, user_id) VALUES ('tomorrow', 'u2'), ('tomorrow', 'u1'), ('ended', 'u3')`)

	store := NewPostgresStore(pg.SQL)

	upcoming, err := store.StartingBetween(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"tomorrow"}, ids(upcoming))

	ended, err := store.EndedBetween(ctx, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"ended"}, ids(ended))

	drafts, err := store.DraftsCreatedBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, ids(drafts))

	attendees, err := store.Attendees(ctx, []string{"tomorrow", "ended"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, attendees["tomorrow"])
	assert.Equal(t, []string{"u3"}, attendees["ended"])
}
