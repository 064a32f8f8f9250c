package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(list []Event) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func TestMemoryStoreWindows(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Put(Event{ID: "tomorrow", Status: StatusPublished, StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(27 * time.Hour)}, "u2", "u1")
	store.Put(Event{ID: "edge", Status: StatusPublished, StartsAt: now.Add(25 * time.Hour), EndsAt: now.Add(26 * time.Hour)})
	store.Put(Event{ID: "cancelled", Status: StatusCancelled, StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(25 * time.Hour)})
	store.Put(Event{ID: "ended", Status: StatusPublished, StartsAt: now.Add(-40 * time.Hour), EndsAt: now.Add(-36 * time.Hour)}, "u3")
	store.Put(Event{ID: "draft", Status: StatusDraft, CreatedAt: now.Add(-8 * 24 * time.Hour)})
	store.Put(Event{ID: "fresh-draft", Status: StatusDraft, CreatedAt: now.Add(-24 * time.Hour)})
	ctx := context.Background()

	upcoming, err := store.StartingBetween(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"tomorrow"}, ids(upcoming), "window end is exclusive")

	ended, err := store.EndedBetween(ctx, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"ended"}, ids(ended))

	drafts, err := store.DraftsCreatedBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, ids(drafts))

	attendees, err := store.Attendees(ctx, []string{"tomorrow", "ended", "edge"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"tomorrow": {"u1", "u2"}, "ended": {"u3"}}, attendees)
}
