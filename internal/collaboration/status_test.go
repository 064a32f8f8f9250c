package collaboration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

func TestEveryStatusIsReachable(t *testing.T) {
	reachable := ReachableFromSubmitted()
	for _, s := range []Status{
		StatusSubmitted, StatusAdminApproved, StatusAdminRejected, StatusVendorAccepted,
		StatusVendorRejected, StatusCounterDelivered, StatusCompleted, StatusCancelled, StatusExpired,
	} {
		assert.True(t, reachable[s], s)
	}
	assert.Len(t, reachable, 9)
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusSubmitted, StatusAdminApproved))
	assert.True(t, CanTransition(StatusVendorAccepted, StatusCounterDelivered))
	assert.False(t, CanTransition(StatusSubmitted, StatusVendorAccepted), "recipient cannot skip the admin gate")
	assert.False(t, CanTransition(StatusAdminApproved, StatusCounterDelivered), "counters go through admin forwarding")
	assert.False(t, CanTransition(StatusCounterDelivered, StatusCancelled))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))

	for _, s := range []Status{StatusAdminRejected, StatusVendorRejected, StatusCompleted, StatusCancelled, StatusExpired} {
		assert.True(t, s.IsTerminal(), s)
		assert.Empty(t, NextStatuses(s))
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]Status{
		"submitted":       StatusSubmitted,
		" Admin_Approved": StatusAdminApproved,
		"pending":         StatusSubmitted,
		"approved":        StatusAdminApproved,
		"accepted":        StatusVendorAccepted,
		"declined":        StatusVendorRejected,
		"countered":       StatusCounterDelivered,
		"counter_offered": StatusCounterDelivered,
		"done":            StatusCompleted,
		"withdrawn":       StatusCancelled,
	}
	for raw, want := range tests {
		got, err := NormalizeStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := NormalizeStatus("archived")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestComputePriority(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	assert.Equal(t, PriorityHigh, ComputePriority(at(5*24*time.Hour), now))
	assert.Equal(t, PriorityMedium, ComputePriority(at(10*24*time.Hour), now))
	assert.Equal(t, PriorityLow, ComputePriority(at(20*24*time.Hour), now))
	assert.Equal(t, PriorityMedium, ComputePriority(nil, now))
}
