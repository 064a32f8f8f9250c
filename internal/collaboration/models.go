package collaboration

import (
	"time"
)

// Kind is the type of collaboration being brokered.
type Kind string

const (
	KindVenueRequest         Kind = "venue_request"
	KindBrandSponsorship     Kind = "brand_sponsorship"
	KindCommunityPartnership Kind = "community_partnership"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVenueRequest, KindBrandSponsorship, KindCommunityPartnership:
		return true
	}
	return false
}

// Party is an identity snapshot taken when the request is submitted.
// Authorization always checks against these snapshots.
type Party struct {
	PartyID     string `json:"party_id"`
	PartyRole   string `json:"party_role"`
	DisplayName string `json:"display_name"`
}

// ReviewDecision is an admin gate outcome.
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewRejected ReviewDecision = "rejected"
)

// ResponseDecision is a party's answer to a proposal.
type ResponseDecision string

const (
	DecisionAccept  ResponseDecision = "accept"
	DecisionReject  ResponseDecision = "reject"
	DecisionCounter ResponseDecision = "counter"
)

// AdminReview records an admin gate decision.
type AdminReview struct {
	ReviewerID string         `json:"reviewer_id"`
	Decision   ReviewDecision `json:"decision"`
	Notes      string         `json:"notes,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// RequestDetails is the per-kind payload of a request.
type RequestDetails struct {
	EventID            string         `json:"event_id,omitempty"`
	EventName          string         `json:"event_name,omitempty"`
	EventDate          *time.Time     `json:"event_date,omitempty"`
	ProposedTerms      string         `json:"proposed_terms,omitempty"`
	Budget             *float64       `json:"budget,omitempty"`
	ExpectedAttendance int            `json:"expected_attendance,omitempty"`
	Extra              map[string]any `json:"extra,omitempty"`
}

// CounterState tracks a counter-offer through the second admin gate.
type CounterState string

const (
	CounterPendingReview CounterState = "pending_review"
	CounterForwarded     CounterState = "forwarded"
	CounterAccepted      CounterState = "accepted"
	CounterRejected      CounterState = "rejected"
)

// CounterOffer holds the recipient's modified terms.
type CounterOffer struct {
	Terms          string       `json:"terms"`
	ProposedDate   *time.Time   `json:"proposed_date,omitempty"`
	ProposedBudget *float64     `json:"proposed_budget,omitempty"`
	State          CounterState `json:"state"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Active reports whether the counter still awaits a decision.
func (c *CounterOffer) Active() bool {
	return c != nil && (c.State == CounterPendingReview || c.State == CounterForwarded)
}

// Response is the recipient's answer snapshot.
type Response struct {
	Decision     ResponseDecision `json:"decision"`
	Message      string           `json:"message,omitempty"`
	CounterOffer *CounterOffer    `json:"counter_offer,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Message is one entry of the negotiation thread.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Priority is derived from the proximity of the linked event.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// CollaborationRequest is a negotiation between an initiator and a recipient,
// gated by admins.
type CollaborationRequest struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Initiator     Party          `json:"initiator"`
	Recipient     Party          `json:"recipient"`
	Status        Status         `json:"status"`
	AdminReview   *AdminReview   `json:"admin_review,omitempty"`
	CounterReview *AdminReview   `json:"counter_review,omitempty"`
	Details       RequestDetails `json:"request_details"`
	Response      *Response      `json:"response,omitempty"`
	Messages      []Message      `json:"messages"`
	Priority      Priority       `json:"priority"`
	ExpiresAt     time.Time      `json:"expires_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Version       int64          `json:"version"`
}

// ActiveCounter returns the counter-offer awaiting a decision, if any.
func (r *CollaborationRequest) ActiveCounter() *CounterOffer {
	if r.Response == nil || !r.Response.CounterOffer.Active() {
		return nil
	}
	return r.Response.CounterOffer
}

// IsParty reports whether userID is the recorded initiator or recipient.
func (r *CollaborationRequest) IsParty(userID string) bool {
	return userID != "" && (r.Initiator.PartyID == userID || r.Recipient.PartyID == userID)
}

// Counterpart returns the other party of userID.
func (r *CollaborationRequest) Counterpart(userID string) Party {
	if r.Initiator.PartyID == userID {
		return r.Recipient
	}
	return r.Initiator
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (r *CollaborationRequest) Clone() *CollaborationRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.AdminReview = cloneReview(r.AdminReview)
	out.CounterReview = cloneReview(r.CounterReview)
	out.Details = r.Details.clone()
	out.Response = r.Response.clone()
	out.Messages = append([]Message(nil), r.Messages...)
	return &out
}

func cloneReview(r *AdminReview) *AdminReview {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

func (d RequestDetails) clone() RequestDetails {
	out := d
	out.EventDate = cloneTime(d.EventDate)
	out.Budget = cloneFloat(d.Budget)
	if d.Extra != nil {
		out.Extra = make(map[string]any, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	if r.CounterOffer != nil {
		co := *r.CounterOffer
		co.ProposedDate = cloneTime(r.CounterOffer.ProposedDate)
		co.ProposedBudget = cloneFloat(r.CounterOffer.ProposedBudget)
		out.CounterOffer = &co
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Query selects requests. Zero-valued fields do not filter.
type Query struct {
	InitiatorID string
	RecipientID string
	// VisibleTo matches requests initiated by the party, or addressed to it
	// once past the first admin gate.
	VisibleTo     string
	Kind          Kind
	Statuses      []Status
	ExpiresBefore *time.Time
	Limit         int
	Offset        int
}

// Matches evaluates the query against one request.
func (q Query) Matches(r *CollaborationRequest) bool {
	if q.InitiatorID != "" && r.Initiator.PartyID != q.InitiatorID {
		return false
	}
	if q.RecipientID != "" && r.Recipient.PartyID != q.RecipientID {
		return false
	}
	if q.VisibleTo != "" {
		asInitiator := r.Initiator.PartyID == q.VisibleTo
		asRecipient := r.Recipient.PartyID == q.VisibleTo && VisibleToRecipient(r.Status)
		if !asInitiator && !asRecipient {
			return false
		}
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if len(q.Statuses) > 0 && !containsStatus(q.Statuses, r.Status) {
		return false
	}
	if q.ExpiresBefore != nil && !r.ExpiresAt.Before(*q.ExpiresBefore) {
		return false
	}
	return true
}

// Expectation is the state a conditional update must still observe.
type Expectation struct {
	Status  Status
	Version int64
}

// Patch lists the fields a conditional update writes. Nil fields are left untouched;
// Messages replaces the whole thread when non-nil.
type Patch struct {
	Status        *Status
	AdminReview   *AdminReview
	CounterReview *AdminReview
	Details       *RequestDetails
	Response      *Response
	Messages      []Message
	Priority      *Priority
	UpdatedAt     time.Time
}

// Apply writes the patch onto r and bumps its version.
func (p Patch) Apply(r *CollaborationRequest) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.AdminReview != nil {
		r.AdminReview = cloneReview(p.AdminReview)
	}
	if p.CounterReview != nil {
		r.CounterReview = cloneReview(p.CounterReview)
	}
	if p.Details != nil {
		r.Details = p.Details.clone()
	}
	if p.Response != nil {
		r.Response = p.Response.clone()
	}
	if p.Messages != nil {
		r.Messages = append([]Message(nil), p.Messages...)
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if !p.UpdatedAt.IsZero() {
		r.UpdatedAt = p.UpdatedAt
	}
	r.Version++
}

// SubmitRequest carries the initiator's proposal. Both parties are named by
// id only; their snapshots are resolved from the account directory.
type SubmitRequest struct {
	InitiatorID string         `json:"initiator_id"`
	RecipientID string         `json:"recipient_id"`
	Kind        Kind           `json:"kind"`
	Details     RequestDetails `json:"request_details"`
}

// CounterProposal is the recipient's counter input.
type CounterProposal struct {
	Terms          string     `json:"terms"`
	ProposedDate   *time.Time `json:"proposed_date,omitempty"`
	ProposedBudget *float64   `json:"proposed_budget,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// ListOptions pages a caller's requests.
type ListOptions struct {
	Statuses []Status
	Kind     Kind
	Limit    int
	Offset   int
}
