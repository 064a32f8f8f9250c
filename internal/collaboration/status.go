package collaboration

import (
	"fmt"
	"strings"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/pkg/workflows"
)

// Status is the negotiation state of a request.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusAdminApproved    Status = "admin_approved"
	StatusAdminRejected    Status = "admin_rejected"
	StatusVendorAccepted   Status = "vendor_accepted"
	StatusVendorRejected   Status = "vendor_rejected"
	StatusCounterDelivered Status = "counter_delivered"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusExpired          Status = "expired"
)

// transitions is the only place where status edges are defined.
var transitions = workflows.NewStateMachine(map[Status][]Status{
	StatusSubmitted:        {StatusAdminApproved, StatusAdminRejected, StatusExpired, StatusCancelled},
	StatusAdminApproved:    {StatusVendorAccepted, StatusVendorRejected, StatusExpired, StatusCancelled},
	StatusVendorAccepted:   {StatusCounterDelivered, StatusCompleted, StatusCancelled},
	StatusCounterDelivered: {StatusCompleted, StatusVendorRejected},
	StatusAdminRejected:    {},
	StatusVendorRejected:   {},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusExpired:          {},
})

// ExpirableStatuses may be moved to expired by the expiry sweep.
var ExpirableStatuses = []Status{StatusSubmitted, StatusAdminApproved}

// legacyAliases maps statuses written by older releases onto the closed set.
var legacyAliases = map[string]Status{
	"pending":         StatusSubmitted,
	"approved":        StatusAdminApproved,
	"accepted":        StatusVendorAccepted,
	"declined":        StatusVendorRejected,
	"countered":       StatusCounterDelivered,
	"counter_offered": StatusCounterDelivered,
	"done":            StatusCompleted,
	"withdrawn":       StatusCancelled,
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	return transitions.Knows(s)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return transitions.IsTerminal(s)
}

// CanTransition reports whether from -> to is an edge of the workflow.
func CanTransition(from, to Status) bool {
	return transitions.CanTransition(from, to)
}

// NextStatuses lists the statuses reachable in one step from s.
func NextStatuses(s Status) []Status {
	return transitions.GetAllowedTransitions(s)
}

// ReachableFromSubmitted lists every status a request can ever hold.
func ReachableFromSubmitted() map[Status]bool {
	return transitions.Reachable(StatusSubmitted)
}

// VisibleToRecipient reports whether the recipient may see a request in s.
func VisibleToRecipient(s Status) bool {
	return s != StatusSubmitted && s != StatusAdminRejected
}

// NormalizeStatus maps a stored value, legacy aliases included, onto Status.
func NormalizeStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if s := Status(v); s.Valid() {
		return s, nil
	}
	if s, ok := legacyAliases[v]; ok {
		return s, nil
	}
	return "", apperr.Validation("unknown collaboration status %q", raw)
}

// LegacyAliases returns the alias table used by the one-time normalization pass.
func LegacyAliases() map[string]Status {
	out := make(map[string]Status, len(legacyAliases))
	for k, v := range legacyAliases {
		out[k] = v
	}
	return out
}

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, to)
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
