package requirements

import (
	"strings"
	"time"
)

// Role of a portal account.
type Role string

const (
	RoleConsumer           Role = "consumer"
	RoleCommunityOrganizer Role = "community_organizer"
	RoleVenue              Role = "venue"
	RoleBrand              Role = "brand"
)

// profileSchemas lists the profile fields each role must fill in.
var profileSchemas = map[Role][]string{
	RoleConsumer:           {"full_name", "email", "phone", "city"},
	RoleCommunityOrganizer: {"full_name", "email", "phone", "community_name", "bio", "city"},
	RoleVenue:              {"venue_name", "email", "phone", "address", "city", "capacity"},
	RoleBrand:              {"brand_name", "email", "phone", "website", "industry"},
}

// PayoutFields are the banking fields of a payout/KYC record.
var PayoutFields = []string{"account_holder_name", "account_number", "bank_code", "bank_name"}

// ProfileFields returns the required profile fields of role.
func ProfileFields(role Role) []string {
	return append([]string(nil), profileSchemas[role]...)
}

// Valid reports whether r has a profile schema.
func (r Role) Valid() bool {
	_, ok := profileSchemas[r]
	return ok
}

// NeedsPayout reports whether the role gets paid through the portal.
func (r Role) NeedsPayout() bool {
	return r == RoleCommunityOrganizer || r == RoleVenue || r == RoleBrand
}

// NeedsSubscription reports whether the role must hold an active plan.
func (r Role) NeedsSubscription() bool {
	return r == RoleVenue || r == RoleBrand
}

// Subscription is the plan record of a venue or brand.
type Subscription struct {
	Plan      string     `json:"plan"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the plan is active and not expired at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil || s.Plan == "" || !strings.EqualFold(s.Status, "active") {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// Account is the input of the evaluator: profile and payout values keyed by
// field name, plus the subscription record when one exists.
type Account struct {
	PartyID      string            `json:"party_id"`
	Role         Role              `json:"role"`
	Profile      map[string]string `json:"profile"`
	Payout       map[string]string `json:"payout"`
	Subscription *Subscription     `json:"subscription,omitempty"`
}

// State is the derived requirement state of an account.
type State struct {
	ProfileComplete      bool     `json:"profile_complete"`
	PayoutComplete       bool     `json:"payout_complete"`
	SubscriptionActive   bool     `json:"subscription_active"`
	SubscriptionExpiring bool     `json:"subscription_expiring"`
	MissingFields        []string `json:"missing_fields"`
	MissingPayoutFields  []string `json:"missing_payout_fields"`
}

// RequiresAction reports whether any requirement is unmet.
func (s State) RequiresAction() bool {
	return !s.ProfileComplete || !s.PayoutComplete || !s.SubscriptionActive
}

// Assess computes the requirement state of a at now. A subscription ending
// within expiringWithin is flagged but still counts as active.
func Assess(a *Account, now time.Time, expiringWithin time.Duration) State {
	st := State{
		MissingFields:       missing(profileSchemas[a.Role], a.Profile),
		MissingPayoutFields: []string{},
		SubscriptionActive:  true,
	}
	st.ProfileComplete = len(st.MissingFields) == 0

	if a.Role.NeedsPayout() {
		st.MissingPayoutFields = missing(PayoutFields, a.Payout)
	}
	st.PayoutComplete = len(st.MissingPayoutFields) == 0

	if a.Role.NeedsSubscription() {
		st.SubscriptionActive = a.Subscription.ActiveAt(now)
		if st.SubscriptionActive && a.Subscription.ExpiresAt != nil && expiringWithin > 0 {
			st.SubscriptionExpiring = a.Subscription.ExpiresAt.Before(now.Add(expiringWithin))
		}
	}
	return st
}

func missing(required []string, values map[string]string) []string {
	out := []string{}
	for _, field := range required {
		if strings.TrimSpace(values[field]) == "" {
			out = append(out, field)
		}
	}
	return out
}
