package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type is the closed vocabulary of notification types.
type Type string

const (
	TypeCollaborationSubmitted Type = "collaboration_submitted"
	TypeCollaborationApproved  Type = "collaboration_approved"
	TypeCollaborationRejected  Type = "collaboration_rejected"
	TypeCollaborationAccepted  Type = "collaboration_accepted"
	TypeCollaborationDeclined  Type = "collaboration_declined"
	TypeCounterPendingReview   Type = "counter_pending_review"
	TypeCounterReceived        Type = "counter_received"
	TypeCounterAccepted        Type = "counter_accepted"
	TypeCounterRejected        Type = "counter_rejected"
	TypeCollaborationCompleted Type = "collaboration_completed"
	TypeCollaborationCancelled Type = "collaboration_cancelled"
	TypeCollaborationExpired   Type = "collaboration_expired"
	TypeCollaborationMessage   Type = "collaboration_message"
	TypeProfileIncomplete      Type = "profile_incomplete"
	TypePayoutDetailsMissing   Type = "payout_details_missing"
	TypeSubscriptionInactive   Type = "subscription_inactive"
	TypeSubscriptionExpiring   Type = "subscription_expiring"
	TypeEventReminder          Type = "event_reminder"
	TypeRatingRequest          Type = "rating_request"
	TypeDraftEventReminder     Type = "draft_event_reminder"
	TypeKYCPending             Type = "kyc_pending"
)

var knownTypes = map[Type]bool{
	TypeCollaborationSubmitted: true,
	TypeCollaborationApproved:  true,
	TypeCollaborationRejected:  true,
	TypeCollaborationAccepted:  true,
	TypeCollaborationDeclined:  true,
	TypeCounterPendingReview:   true,
	TypeCounterReceived:        true,
	TypeCounterAccepted:        true,
	TypeCounterRejected:        true,
	TypeCollaborationCompleted: true,
	TypeCollaborationCancelled: true,
	TypeCollaborationExpired:   true,
	TypeCollaborationMessage:   true,
	TypeProfileIncomplete:      true,
	TypePayoutDetailsMissing:   true,
	TypeSubscriptionInactive:   true,
	TypeSubscriptionExpiring:   true,
	TypeEventReminder:          true,
	TypeRatingRequest:          true,
	TypeDraftEventReminder:     true,
	TypeKYCPending:             true,
}

// Valid reports whether t is part of the vocabulary.
func (t Type) Valid() bool { return knownTypes[t] }

// Category groups types for channel preferences.
type Category string

const (
	CategoryActionRequired Category = "action_required"
	CategoryStatusUpdate   Category = "status_update"
	CategoryReminder       Category = "reminder"
	CategoryMilestone      Category = "milestone"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryActionRequired, CategoryStatusUpdate, CategoryReminder, CategoryMilestone:
		return true
	}
	return false
}

// Priority of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// AllChannels in delivery order.
var AllChannels = []Channel{ChannelInApp, ChannelEmail, ChannelPush, ChannelSMS}

// DeliveryStatus of one channel attempt.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusBounced   DeliveryStatus = "bounced"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusBounced:
		return true
	}
	return false
}

// ChannelSet is the snapshot of enabled channels taken at creation.
type ChannelSet struct {
	InApp bool `json:"in_app"`
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Enabled reports whether ch is on.
func (c ChannelSet) Enabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return c.InApp
	case ChannelEmail:
		return c.Email
	case ChannelPush:
		return c.Push
	case ChannelSMS:
		return c.SMS
	}
	return false
}

// With returns a copy with ch set to on.
func (c ChannelSet) With(ch Channel, on bool) ChannelSet {
	switch ch {
	case ChannelInApp:
		c.InApp = on
	case ChannelEmail:
		c.Email = on
	case ChannelPush:
		c.Push = on
	case ChannelSMS:
		c.SMS = on
	}
	return c
}

// List returns the enabled channels in delivery order.
func (c ChannelSet) List() []Channel {
	out := make([]Channel, 0, len(AllChannels))
	for _, ch := range AllChannels {
		if c.Enabled(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// EntityRef points at the entity a notification is about.
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ChannelDeliveryStatus represents delivery status per channel
type ChannelDeliveryStatus struct {
	Channel      Channel        `json:"channel"`
	Status       DeliveryStatus `json:"status"`
	ProviderID   *string        `json:"provider_id,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
}

// Notification is immutable after creation except for the read, archive and
// delivery status fields.
type Notification struct {
	ID             string                            `json:"id"`
	RecipientID    string                            `json:"recipient_id"`
	Type           Type                              `json:"type"`
	Category       Category                          `json:"category"`
	Priority       Priority                          `json:"priority"`
	Title          string                            `json:"title"`
	Message        string                            `json:"message"`
	RelatedEntity  *EntityRef                        `json:"related_entity,omitempty"`
	ActionLink     string                            `json:"action_link,omitempty"`
	Channels       ChannelSet                        `json:"channels"`
	DeliveryStatus map[Channel]ChannelDeliveryStatus `json:"delivery_status"`
	IsRead         bool                              `json:"is_read"`
	ReadAt         *time.Time                        `json:"read_at,omitempty"`
	IsArchived     bool                              `json:"is_archived"`
	CreatedAt      time.Time                         `json:"created_at"`
	ExpiresAt      *time.Time                        `json:"expires_at,omitempty"`
	DedupeKey      string                            `json:"-"`

	// Collapsed is set on the value Create returns when the dedupe key matched
	// an existing notification. It is never stored.
	Collapsed bool `json:"-"`
}

// Clone returns a deep copy.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	out := *n
	if n.RelatedEntity != nil {
		ref := *n.RelatedEntity
		out.RelatedEntity = &ref
	}
	out.DeliveryStatus = make(map[Channel]ChannelDeliveryStatus, len(n.DeliveryStatus))
	for ch, st := range n.DeliveryStatus {
		out.DeliveryStatus[ch] = st
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		out.ReadAt = &t
	}
	if n.ExpiresAt != nil {
		t := *n.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}

// CreateRequest is the dispatcher input.
type CreateRequest struct {
	RecipientID   string
	Type          Type
	Category      Category
	Priority      Priority
	Title         string
	Message       string
	RelatedEntity *EntityRef
	ActionLink    string
	// DedupeKey, when set, is unique per recipient in the store. A second
	// create with the same key returns the first notification.
	DedupeKey string
	ExpiresAt *time.Time
}

// Recipient is the contact data of a notification target.
type Recipient struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`
	Email       string `json:"email" db:"email"`
	Phone       string `json:"phone" db:"phone"`
}

// UserPreference represents user notification preferences
type UserPreference struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    string    `json:"user_id" gorm:"not null;uniqueIndex:idx_user_preferences_user_channel_category"`
	Channel   Channel   `json:"channel" gorm:"not null;uniqueIndex:idx_user_preferences_user_channel_category"`
	Category  string    `json:"category" gorm:"not null;uniqueIndex:idx_user_preferences_user_channel_category"`
	Enabled   bool      `json:"enabled" gorm:"not null;default:true"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// CategoryAll in a preference applies to every category without its own row.
const CategoryAll = "*"

// DeliveryLog represents delivery tracking logs
type DeliveryLog struct {
	ID                uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	NotificationID    string         `json:"notification_id" gorm:"not null;index"`
	UserID            string         `json:"user_id" gorm:"not null;index"`
	Channel           Channel        `json:"channel" gorm:"not null"`
	Status            DeliveryStatus `json:"status" gorm:"not null"`
	ProviderMessageID string         `json:"provider_message_id" gorm:""`
	ErrorMessage      string         `json:"error_message" gorm:""`
	Timestamp         time.Time      `json:"timestamp" gorm:"autoCreateTime"`
}

// ListOptions pages a recipient's notifications.
type ListOptions struct {
	UnreadOnly      bool
	IncludeArchived bool
	Limit           int
	Offset          int
}
