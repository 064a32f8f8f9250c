package settings

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
)

type Service struct {
	prefs      notifications.PreferenceStore
	recipients notifications.RecipientDirectory
	logger     *zap.Logger
}

// NewService creates the settings service. recipients supplies the contact
// data the effective view depends on.
func NewService(prefs notifications.PreferenceStore, recipients notifications.RecipientDirectory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{prefs: prefs, recipients: recipients, logger: logger}
}

func (s *Service) GetNotifications(ctx context.Context, userID string) (*NotificationPreferences, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	rows, err := s.prefs.GetUserPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &NotificationPreferences{
		UserID:     userID,
		Channels:   map[notifications.Channel]bool{},
		Categories: map[notifications.Category]map[notifications.Channel]bool{},
		Effective:  map[notifications.Category]notifications.ChannelSet{},
	}
	for _, p := range rows {
		if p.Category == notifications.CategoryAll {
			out.Channels[p.Channel] = p.Enabled
			continue
		}
		cat := notifications.Category(p.Category)
		if out.Categories[cat] == nil {
			out.Categories[cat] = map[notifications.Channel]bool{}
		}
		out.Categories[cat][p.Channel] = p.Enabled
	}

	recipient := s.lookup(ctx, userID)
	for _, cat := range categories {
		out.Effective[cat] = notifications.ResolveChannels(cat, rows, recipient)
	}
	return out, nil
}

// UpdateNotifications validates every switch before writing any of them.
func (s *Service) UpdateNotifications(ctx context.Context, userID string, req UpdateNotificationsRequest) (*NotificationPreferences, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}

	var rows []notifications.UserPreference
	for ch, on := range req.Channels {
		rows = append(rows, notifications.UserPreference{UserID: userID, Channel: ch, Category: notifications.CategoryAll, Enabled: on})
	}
	for cat, channels := range req.Categories {
		if !cat.Valid() {
			return nil, apperr.Validation("unknown category %q", cat)
		}
		for ch, on := range channels {
			rows = append(rows, notifications.UserPreference{UserID: userID, Channel: ch, Category: string(cat), Enabled: on})
		}
	}
	for _, r := range rows {
		if err := validateChannel(r.Channel); err != nil {
			return nil, err
		}
	}

	for _, r := range rows {
		if err := s.prefs.SetUserPreference(ctx, r); err != nil {
			return nil, err
		}
	}
	s.logger.Info("updated notification preferences", zap.String("user_id", userID), zap.Int("switches", len(rows)))
	return s.GetNotifications(ctx, userID)
}

func (s *Service) lookup(ctx context.Context, userID string) *notifications.Recipient {
	r, err := s.recipients.LookupRecipient(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("failed to look up recipient", zap.String("user_id", userID), zap.Error(err))
		}
		return &notifications.Recipient{ID: userID}
	}
	return r
}

func validateChannel(ch notifications.Channel) error {
	switch ch {
	case notifications.ChannelEmail, notifications.ChannelPush, notifications.ChannelSMS:
		return nil
	case notifications.ChannelInApp:
		return apperr.Validation("in-app notifications cannot be disabled")
	}
	return apperr.Validation("unknown channel %q", ch)
}
