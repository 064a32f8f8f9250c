package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// Archiver stores notifications before they are purged.
type Archiver interface {
	Archive(ctx context.Context, batch []*Notification) error
}

// ServiceConfig contains service configuration
type ServiceConfig struct {
	// Retention sets ExpiresAt on new notifications. Zero keeps them forever.
	Retention time.Duration
	// ActionBaseURL prefixes relative action links in email and push bodies.
	ActionBaseURL string
	Now           func() time.Time
}

// Service is the notification dispatcher. Channel failures are recorded on the
// notification and never returned to the caller.
type Service struct {
	repo       Repository
	recipients RecipientDirectory
	prefs      PreferenceStore
	senders    Senders
	archiver   Archiver
	logger     *zap.Logger
	config     ServiceConfig
}

// NewService creates a new notification service
func NewService(repo Repository, recipients RecipientDirectory, prefs PreferenceStore, senders Senders, archiver Archiver, logger *zap.Logger, config ServiceConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		repo:       repo,
		recipients: recipients,
		prefs:      prefs,
		senders:    senders,
		archiver:   archiver,
		logger:     logger,
		config:     config,
	}
}

// Create persists a notification and attempts every enabled channel. An
// unknown recipient yields (nil, nil).
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Notification, error) {
	if req.RecipientID == "" {
		return nil, apperr.Validation("recipient is required")
	}
	if !req.Type.Valid() {
		return nil, apperr.Validation("unknown notification type %q", req.Type)
	}
	if !req.Category.Valid() {
		return nil, apperr.Validation("unknown notification category %q", req.Category)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("title is required")
	}

	recipient, err := s.recipients.LookupRecipient(ctx, req.RecipientID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("notification recipient not found, skipping",
			zap.String("recipient_id", req.RecipientID),
			zap.String("type", string(req.Type)))
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Upstream("lookup recipient", err)
	}

	var prefs []UserPreference
	if s.prefs != nil {
		prefs, err = s.prefs.GetUserPreferences(ctx, req.RecipientID)
		if err != nil {
			s.logger.Warn("failed to load preferences, using defaults",
				zap.String("recipient_id", req.RecipientID), zap.Error(err))
			prefs = nil
		}
	}
	channels := ResolveChannels(req.Category, prefs, recipient)

	now := s.config.Now()
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	n := &Notification{
		ID:             uuid.NewString(),
		RecipientID:    req.RecipientID,
		Type:           req.Type,
		Category:       req.Category,
		Priority:       priority,
		Title:          req.Title,
		Message:        req.Message,
		RelatedEntity:  req.RelatedEntity,
		ActionLink:     req.ActionLink,
		Channels:       channels,
		DeliveryStatus: make(map[Channel]ChannelDeliveryStatus),
		CreatedAt:      now,
		ExpiresAt:      req.ExpiresAt,
		DedupeKey:      req.DedupeKey,
	}
	if n.ExpiresAt == nil && s.config.Retention > 0 {
		expires := now.Add(s.config.Retention)
		n.ExpiresAt = &expires
	}
	for _, ch := range channels.List() {
		status := ChannelDeliveryStatus{Channel: ch, Status: StatusPending}
		if ch == ChannelInApp {
			status.Status = StatusDelivered
			status.DeliveredAt = &now
		}
		n.DeliveryStatus[ch] = status
	}

	if err := s.repo.Save(ctx, n); err != nil {
		if errors.Is(err, apperr.ErrConflict) && n.DedupeKey != "" {
			return s.existingByDedupeKey(ctx, n.RecipientID, n.DedupeKey)
		}
		return nil, err
	}

	attempted := make(map[Channel]ChannelDeliveryStatus)
	for _, ch := range channels.List() {
		if ch == ChannelInApp {
			continue
		}
		status := s.sendViaChannel(ctx, ch, n, recipient)
		attempted[ch] = status
		n.DeliveryStatus[ch] = status
		s.logDeliveryAttempt(ctx, n, status)
	}

	if len(attempted) > 0 {
		if _, err := s.repo.ConditionalUpdate(ctx, n.ID, Expectation{}, Patch{DeliveryStatus: attempted}); err != nil {
			s.logger.Warn("failed to store delivery status",
				zap.String("notification_id", n.ID), zap.Error(err))
		}
	}

	s.logger.Debug("notification created",
		zap.String("notification_id", n.ID),
		zap.String("recipient_id", n.RecipientID),
		zap.String("type", string(n.Type)))
	return n, nil
}

func (s *Service) existingByDedupeKey(ctx context.Context, recipientID, key string) (*Notification, error) {
	found, err := s.repo.FindByQuery(ctx, Query{RecipientID: recipientID, DedupeKey: key, IncludeArchived: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("notification %s/%s: %w", recipientID, key, apperr.ErrConflict)
	}
	s.logger.Debug("duplicate notification collapsed",
		zap.String("recipient_id", recipientID), zap.String("dedupe_key", key))
	existing := found[0]
	existing.Collapsed = true
	return existing, nil
}

// sendViaChannel sends notification via a specific channel
func (s *Service) sendViaChannel(ctx context.Context, ch Channel, n *Notification, recipient *Recipient) ChannelDeliveryStatus {
	now := s.config.Now()
	status := ChannelDeliveryStatus{Channel: ch, Status: StatusPending, SentAt: &now}

	var err error
	switch ch {
	case ChannelEmail:
		if s.senders.Email == nil {
			err = errNoTransport
			break
		}
		err = s.senders.Email.SendEmail(ctx, recipient.Email, n.Title, s.emailBody(n))
		if err == nil {
			status.Status = StatusSent
		}

	case ChannelPush:
		if s.senders.Push == nil {
			err = errNoTransport
			break
		}
		err = s.senders.Push.SendPush(ctx, n.RecipientID, newPushPayload(n, s.actionURL(n.ActionLink)))
		if err == nil {
			status.Status = StatusDelivered
			deliveredAt := s.config.Now()
			status.DeliveredAt = &deliveredAt
		}

	case ChannelSMS:
		if s.senders.SMS == nil {
			err = errNoTransport
			break
		}
		err = s.senders.SMS.SendSMS(ctx, recipient.Phone, smsText(n))
		if err == nil {
			status.Status = StatusSent
		}

	default:
		err = fmt.Errorf("%w: unsupported channel %s", apperr.ErrTransportFailure, ch)
	}

	if err != nil {
		msg := err.Error()
		status.Status = StatusFailed
		status.ErrorMessage = &msg
		s.logger.Warn("notification channel failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(ch)),
			zap.Error(err))
	}
	return status
}

var errNoTransport = fmt.Errorf("%w: no transport configured", apperr.ErrTransportFailure)

func (s *Service) logDeliveryAttempt(ctx context.Context, n *Notification, status ChannelDeliveryStatus) {
	entry := DeliveryLog{
		ID:             uuid.New(),
		NotificationID: n.ID,
		UserID:         n.RecipientID,
		Channel:        status.Channel,
		Status:         status.Status,
		Timestamp:      s.config.Now(),
	}
	if status.ProviderID != nil {
		entry.ProviderMessageID = *status.ProviderID
	}
	if status.ErrorMessage != nil {
		entry.ErrorMessage = *status.ErrorMessage
	}
	if err := s.repo.LogDelivery(ctx, entry); err != nil {
		s.logger.Warn("failed to log delivery attempt",
			zap.String("notification_id", n.ID), zap.Error(err))
	}
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, callerID, id string) (*Notification, error) {
	now := s.config.Now()
	read := true
	return s.repo.ConditionalUpdate(ctx, id, Expectation{RecipientID: callerID}, Patch{IsRead: &read, ReadAt: &now})
}

// MarkAllRead marks the listed notifications read, or every unread one when
// ids is empty. Ownership of all ids is checked before anything is written.
func (s *Service) MarkAllRead(ctx context.Context, callerID string, ids []string) (int, error) {
	if callerID == "" {
		return 0, apperr.ErrUnauthorized
	}

	var targets []*Notification
	var err error
	if len(ids) == 0 {
		targets, err = s.repo.FindByQuery(ctx, Query{RecipientID: callerID, UnreadOnly: true})
	} else {
		targets, err = s.repo.FindByQuery(ctx, Query{IDs: ids, IncludeArchived: true})
	}
	if err != nil {
		return 0, err
	}
	for _, n := range targets {
		if n.RecipientID != callerID {
			return 0, fmt.Errorf("notification %s: %w", n.ID, apperr.ErrUnauthorized)
		}
	}

	marked := 0
	for _, n := range targets {
		if n.IsRead {
			continue
		}
		if _, err := s.MarkRead(ctx, callerID, n.ID); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// Archive hides one of the caller's notifications from the default listing.
func (s *Service) Archive(ctx context.Context, callerID, id string) (*Notification, error) {
	archived := true
	return s.repo.ConditionalUpdate(ctx, id, Expectation{RecipientID: callerID}, Patch{IsArchived: &archived})
}

// UnreadCount counts non-archived unread notifications.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.CountBy(ctx, Query{RecipientID: recipientID, UnreadOnly: true})
}

// List returns a recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, opts ListOptions) ([]*Notification, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}
	return s.repo.FindByQuery(ctx, Query{
		RecipientID:     recipientID,
		UnreadOnly:      opts.UnreadOnly,
		IncludeArchived: opts.IncludeArchived,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	})
}

// LatestOfType returns the newest notification of typ for the recipient created
// at or after since, or nil. A zero since searches all history.
func (s *Service) LatestOfType(ctx context.Context, recipientID string, typ Type, related *EntityRef, since time.Time) (*Notification, error) {
	q := Query{
		RecipientID:     recipientID,
		Types:           []Type{typ},
		RelatedEntity:   related,
		IncludeArchived: true,
		Limit:           1,
	}
	if !since.IsZero() {
		q.CreatedSince = &since
	}
	found, err := s.repo.FindByQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// RecordDelivery applies a provider callback to one enabled channel.
func (s *Service) RecordDelivery(ctx context.Context, id string, ch Channel, status DeliveryStatus, detail string) (*Notification, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown delivery status %q", status)
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current, ok := n.DeliveryStatus[ch]
	if !ok || !n.Channels.Enabled(ch) {
		return nil, apperr.Validation("channel %s was not enabled for notification %s", ch, id)
	}

	now := s.config.Now()
	current.Status = status
	switch status {
	case StatusDelivered:
		current.DeliveredAt = &now
	case StatusFailed, StatusBounced:
		if detail != "" {
			current.ErrorMessage = &detail
		}
	}

	updated, err := s.repo.ConditionalUpdate(ctx, id, Expectation{}, Patch{
		DeliveryStatus: map[Channel]ChannelDeliveryStatus{ch: current},
	})
	if err != nil {
		return nil, err
	}
	s.logDeliveryAttempt(ctx, updated, current)
	return updated, nil
}

// PurgeExpired archives and deletes notifications whose ExpiresAt has passed.
// Nothing is deleted when archiving fails.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.FindByQuery(ctx, Query{ExpiredBefore: &now, IncludeArchived: true})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, expired); err != nil {
			return 0, fmt.Errorf("failed to archive expired notifications: %w", err)
		}
	}

	ids := make([]string, len(expired))
	for i, n := range expired {
		ids[i] = n.ID
	}
	deleted, err := s.repo.Delete(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info("purged expired notifications", zap.Int64("count", deleted))
	return int(deleted), nil
}

func (s *Service) actionURL(link string) string {
	if link == "" || s.config.ActionBaseURL == "" || strings.HasPrefix(link, "http") {
		return link
	}
	return strings.TrimRight(s.config.ActionBaseURL, "/") + "/" + strings.TrimLeft(link, "/")
}

func (s *Service) emailBody(n *Notification) string {
	var b strings.Builder
	b.WriteString(n.Message)
	if link := s.actionURL(n.ActionLink); link != "" {
		b.WriteString("\n\n")
		b.WriteString(link)
	}
	return b.String()
}

// smsLimit is counted in characters; SNS rejects bodies that are not valid UTF-8.
const smsLimit = 160

func smsText(n *Notification) string {
	text := n.Title
	if n.Message != "" {
		text += ": " + n.Message
	}
	if utf8.RuneCountInString(text) > smsLimit {
		text = string([]rune(text)[:smsLimit-3]) + "..."
	}
	return text
}
