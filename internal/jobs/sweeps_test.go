package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/accounts"
	"gatherhub/collab-portal/collab-portal-backend/internal/config"
	"gatherhub/collab-portal/collab-portal-backend/internal/events"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fakeExpirer struct {
	n   int
	err error
}

func (f *fakeExpirer) ExpireOverdue(context.Context) (int, error) { return f.n, f.err }

type harness struct {
	clock    *clock
	events   *events.MemoryStore
	accounts *accounts.MemoryStore
	store    *notifications.MemoryRepository
	sweeps   *Sweeps
	runner   *Runner
}

func completeConsumer(id string) accounts.Seed {
	return accounts.Seed{Account: requirements.Account{
		PartyID: id,
		Role:    requirements.RoleConsumer,
		Profile: map[string]string{"full_name": id, "email": id + "@test", "phone": "1", "city": "Porto"},
	}}
}

func newHarness(t *testing.T, seeds ...accounts.Seed) *harness {
	t.Helper()
	c := &clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	accts := accounts.NewMemoryStore(seeds...)
	store := notifications.NewMemoryRepository()
	dispatcher := notifications.NewService(store, accts, nil, notifications.Senders{}, nil, nil,
		notifications.ServiceConfig{Now: c.Now, Retention: 30 * 24 * time.Hour})
	evaluator := requirements.NewEvaluator(accts, dispatcher, nil, requirements.Config{Now: c.Now})
	eventStore := events.NewMemoryStore()

	sweeps := NewSweeps(eventStore, accts, dispatcher, evaluator, &fakeExpirer{n: 2}, nil, SweepConfig{})
	runner := NewRunner(nil, RunnerConfig{Now: c.Now})
	require.NoError(t, sweeps.RegisterAll(runner, config.Default().Scheduler))

	return &harness{clock: c, events: eventStore, accounts: accts, store: store, sweeps: sweeps, runner: runner}
}

func (h *harness) run(t *testing.T, job string) *Report {
	t.Helper()
	report, err := h.runner.Run(context.Background(), job)
	require.NoError(t, err)
	return report
}

func (h *harness) count(t *testing.T, recipient string, typ notifications.Type) int64 {
	t.Helper()
	n, err := h.store.CountBy(context.Background(), notifications.Query{
		RecipientID: recipient, Types: []notifications.Type{typ}, IncludeArchived: true,
	})
	require.NoError(t, err)
	return n
}

func TestAllSweepsRegistered(t *testing.T) {
	h := newHarness(t)
	names := []string{}
	for _, j := range h.runner.Jobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{
		CollaborationExpiry, DraftEvent, EventReminder, KYCPending, NotificationPurge, ProfileIncomplete, RatingRequest,
	}, names)
}

func TestEventReminderOncePerDay(t *testing.T) {
	h := newHarness(t, completeConsumer("host-1"), completeConsumer("guest-1"), completeConsumer("guest-2"))
	h.events.Put(events.Event{
		ID: "e1", HostID: "host-1", Title: "Rooftop Jazz", Status: events.StatusPublished,
		StartsAt: h.clock.now.Add(24*time.Hour + 30*time.Minute), EndsAt: h.clock.now.Add(27 * time.Hour),
	}, "guest-1", "guest-2", "host-1")
	h.events.Put(events.Event{
		ID: "e2", HostID: "host-1", Title: "Later", Status: events.StatusPublished,
		StartsAt: h.clock.now.Add(26 * time.Hour), EndsAt: h.clock.now.Add(28 * time.Hour),
	})

	report := h.run(t, EventReminder)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 3, report.Succeeded)

	h.clock.now = h.clock.now.Add(10 * time.Minute)
	report = h.run(t, EventReminder)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 3, report.Skipped)

	for _, id := range []string{"host-1", "guest-1", "guest-2"} {
		assert.EqualValues(t, 1, h.count(t, id, notifications.TypeEventReminder), id)
	}
}

func TestRatingRequestOnlyOnce(t *testing.T) {
	h := newHarness(t, completeConsumer("guest-1"))
	h.events.Put(events.Event{
		ID: "e1", HostID: "host-1", Title: "Market", Status: events.StatusPublished,
		StartsAt: h.clock.now.Add(-40 * time.Hour), EndsAt: h.clock.now.Add(-36 * time.Hour),
	}, "guest-1", "ghost")

	report := h.run(t, RatingRequest)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped, "unknown attendees are skipped")

	h.clock.now = h.clock.now.Add(10 * time.Hour)
	report = h.run(t, RatingRequest)
	assert.Equal(t, 0, report.Succeeded)
	assert.EqualValues(t, 1, h.count(t, "guest-1", notifications.TypeRatingRequest))
}

func TestProfileSweepUsesScheduledCooldown(t *testing.T) {
	incomplete := accounts.Seed{Account: requirements.Account{
		PartyID: "consumer-1", Role: requirements.RoleConsumer,
		Profile: map[string]string{"full_name": "Ada", "email": "ada@test"},
	}}
	h := newHarness(t, incomplete, completeConsumer("consumer-2"))

	report := h.run(t, ProfileIncomplete)
	assert.Equal(t, 1, report.Candidates, "complete accounts are not candidates")
	assert.Equal(t, 1, report.Succeeded)

	h.clock.now = h.clock.now.Add(3 * 24 * time.Hour)
	report = h.run(t, ProfileIncomplete)
	assert.Equal(t, 1, report.Skipped)

	h.clock.now = h.clock.now.Add(5 * 24 * time.Hour)
	report = h.run(t, ProfileIncomplete)
	assert.Equal(t, 1, report.Succeeded)
	assert.EqualValues(t, 2, h.count(t, "consumer-1", notifications.TypeProfileIncomplete))
}

func TestDraftAndKYCReminders(t *testing.T) {
	host := completeConsumer("host-1")
	host.HostsEvents = true
	host.KYCStatus = accounts.KYCPending
	h := newHarness(t, host)
	h.events.Put(events.Event{ID: "old", HostID: "host-1", Title: "Picnic", Status: events.StatusDraft, CreatedAt: h.clock.now.Add(-8 * 24 * time.Hour)})
	h.events.Put(events.Event{ID: "new", HostID: "host-1", Title: "Brunch", Status: events.StatusDraft, CreatedAt: h.clock.now.Add(-2 * 24 * time.Hour)})

	assert.Equal(t, 1, h.run(t, DraftEvent).Succeeded)
	assert.Equal(t, 1, h.run(t, KYCPending).Succeeded)

	h.clock.now = h.clock.now.Add(24 * time.Hour)
	assert.Equal(t, 1, h.run(t, DraftEvent).Skipped)
	assert.Equal(t, 1, h.run(t, KYCPending).Skipped)

	h.clock.now = h.clock.now.Add(7 * 24 * time.Hour)
	assert.Equal(t, 2, h.run(t, DraftEvent).Succeeded, "the second draft is now old enough too")
	assert.Equal(t, 1, h.run(t, KYCPending).Succeeded)
	assert.EqualValues(t, 2, h.count(t, "host-1", notifications.TypeKYCPending))
}

func TestExpiryAndPurge(t *testing.T) {
	h := newHarness(t, completeConsumer("guest-1"))
	h.events.Put(events.Event{
		ID: "e1", HostID: "host-1", Title: "Market", Status: events.StatusPublished,
		StartsAt: h.clock.now.Add(-40 * time.Hour), EndsAt: h.clock.now.Add(-30 * time.Hour),
	}, "guest-1")
	h.run(t, RatingRequest)

	report := h.run(t, CollaborationExpiry)
	assert.Equal(t, 2, report.Succeeded)

	assert.Equal(t, 0, h.run(t, NotificationPurge).Succeeded)
	h.clock.now = h.clock.now.Add(31 * 24 * time.Hour)
	assert.Equal(t, 1, h.run(t, NotificationPurge).Succeeded)
	assert.EqualValues(t, 0, h.count(t, "guest-1", notifications.TypeRatingRequest))
}

func TestExpiryErrorIsReturned(t *testing.T) {
	boom := errors.New("db down")
	sweeps := NewSweeps(events.NewMemoryStore(), accounts.NewMemoryStore(), nil, nil, &fakeExpirer{err: boom}, nil, SweepConfig{})
	_, err := sweeps.ExpireCollaborations(context.Background(), time.Now())
	assert.ErrorIs(t, err, boom)
}

// failingDispatcher refuses to create notifications for one recipient.
type failingDispatcher struct {
	Dispatcher
	recipient string
}

func (d failingDispatcher) Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error) {
	if req.RecipientID == d.recipient {
		return nil, errors.New("smtp relay unavailable")
	}
	return d.Dispatcher.Create(ctx, req)
}

func TestEventReminderCountsPerRecipientFailures(t *testing.T) {
	h := newHarness(t, completeConsumer("host-1"), completeConsumer("guest-1"), completeConsumer("guest-2"))
	h.sweeps.dispatcher = failingDispatcher{Dispatcher: h.sweeps.dispatcher, recipient: "guest-1"}
	h.events.Put(events.Event{
		ID: "e1", HostID: "host-1", Title: "Rooftop Jazz", Status: events.StatusPublished,
		StartsAt: h.clock.now.Add(24*time.Hour + 30*time.Minute), EndsAt: h.clock.now.Add(27 * time.Hour),
	}, "guest-1", "guest-2")

	report := h.run(t, EventReminder)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Skipped)

	assert.Zero(t, h.count(t, "guest-1", notifications.TypeEventReminder))
	assert.EqualValues(t, 1, h.count(t, "guest-2", notifications.TypeEventReminder))
	assert.EqualValues(t, 1, h.count(t, "host-1", notifications.TypeEventReminder))
}
