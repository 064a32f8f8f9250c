package notifications

import "context"

// EmailSender delivers one email. Implementations do not retry.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PushSender delivers a push payload to every live connection of a user.
type PushSender interface {
	SendPush(ctx context.Context, to string, payload PushPayload) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) error
}

// Senders groups the outbound transports. A nil sender fails its channel.
type Senders struct {
	Email EmailSender
	Push  PushSender
	SMS   SMSSender
}

// PushPayload is the body of a push message.
type PushPayload struct {
	NotificationID string     `json:"notification_id"`
	Type           Type       `json:"type"`
	Category       Category   `json:"category"`
	Priority       Priority   `json:"priority"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	ActionLink     string     `json:"action_link,omitempty"`
	RelatedEntity  *EntityRef `json:"related_entity,omitempty"`
}

func newPushPayload(n *Notification, actionURL string) PushPayload {
	return PushPayload{
		NotificationID: n.ID,
		Type:           n.Type,
		Category:       n.Category,
		Priority:       n.Priority,
		Title:          n.Title,
		Body:           n.Message,
		ActionLink:     actionURL,
		RelatedEntity:  n.RelatedEntity,
	}
}
