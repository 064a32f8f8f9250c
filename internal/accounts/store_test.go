package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/internal/events"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
	"gatherhub/collab-portal/collab-portal-backend/internal/testinfra"
)

func TestPostgresStore(t *testing.T) {
	pg := testinfra.StartPostgres(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, pg.SQL))
	require.NoError(t, events.Migrate(ctx, pg.SQL))
	pg.Truncate(t, "event_attendees", "events", "subscriptions", "payout_details", "users")

	expires := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	pg.SQL.MustExec(`INSERT INTO users (id, role, display_name, email, phone, is_admin, kyc_status, profile) VALUES
		('venue-1', 'venue', 'Harbor Hall', 'h@test', '+1555', false, 'pending', '{"venue_name":"Harbor Hall","capacity":300}'),
		('admin-1', 'consumer', 'Ops', 'ops@test', NULL, true, 'verified', '{}')`)
	pg.SQL.MustExec(`INSERT INTO payout_details (user_id, account_holder_name, bank_code) VALUES ('venue-1', 'Harbor Hall Ltd', '001')`)
	pg.SQL.MustExec(`INSERT INTO subscriptions (user_id, plan, status, expires_at) VALUES ('venue-1', 'pro', 'active', $1)`, expires)
	pg.SQL.MustExec(`INSERT INTO events (id, host_id, title, status, starts_at, ends_at) VALUES ('e1', 'venue-1', 'Launch', 'published', NOW(), NOW())`)

	store := NewPostgresStore(pg.SQL)

	a, err := store.LoadAccount(ctx, "venue-1")
	require.NoError(t, err)
	assert.Equal(t, requirements.RoleVenue, a.Role)
	assert.Equal(t, "300", a.Profile["capacity"])
	assert.Equal(t, "h@test", a.Profile["email"])
	assert.Equal(t, "Harbor Hall Ltd", a.Payout["account_holder_name"])
	assert.Empty(t, a.Payout["bank_name"])
	require.NotNil(t, a.Subscription)
	assert.True(t, a.Subscription.ExpiresAt.Equal(expires))

	_, err = store.LoadAccount(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	admins, err := store.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-1"}, admins)

	isAdmin, err := store.IsAdmin(ctx, "venue-1")
	require.NoError(t, err)
	assert.False(t, isAdmin)

	r, err := store.LookupRecipient(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "ops@test", r.Email)
	assert.Empty(t, r.Phone)

	list, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	hosts, err := store.HostsWithPendingKYC(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"venue-1"}, hosts)
}
