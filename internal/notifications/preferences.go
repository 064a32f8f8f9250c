package notifications

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// RecipientDirectory resolves contact data. Unknown ids return ErrNotFound.
type RecipientDirectory interface {
	LookupRecipient(ctx context.Context, id string) (*Recipient, error)
}

// PreferenceStore holds per-user, per-category channel switches.
type PreferenceStore interface {
	GetUserPreferences(ctx context.Context, userID string) ([]UserPreference, error)
	SetUserPreference(ctx context.Context, pref UserPreference) error
}

// defaultChannels applies when a user has no preference row for a channel.
var defaultChannels = map[Category]ChannelSet{
	CategoryActionRequired: {InApp: true, Email: true, Push: true},
	CategoryStatusUpdate:   {InApp: true, Email: true, Push: true},
	CategoryReminder:       {InApp: true, Email: true},
	CategoryMilestone:      {InApp: true, Email: true, Push: true},
}

// ResolveChannels computes the channel snapshot of a new notification. A row for
// the exact category wins over a CategoryAll row, which wins over the default.
// In-app is always on. Email and SMS need a contact address.
func ResolveChannels(category Category, prefs []UserPreference, recipient *Recipient) ChannelSet {
	set := defaultChannels[category]

	for _, ch := range AllChannels {
		if override, ok := lookupPreference(prefs, ch, string(category)); ok {
			set = set.With(ch, override)
		} else if override, ok := lookupPreference(prefs, ch, CategoryAll); ok {
			set = set.With(ch, override)
		}
	}

	set.InApp = true
	if recipient == nil || recipient.Email == "" {
		set.Email = false
	}
	if recipient == nil || recipient.Phone == "" {
		set.SMS = false
	}
	return set
}

func lookupPreference(prefs []UserPreference, ch Channel, category string) (bool, bool) {
	for _, p := range prefs {
		if p.Channel == ch && p.Category == category {
			return p.Enabled, true
		}
	}
	return false, false
}

// PreferenceManager stores preferences with gorm.
type PreferenceManager struct {
	db *gorm.DB
}

// NewPreferenceManager creates a new preference manager
func NewPreferenceManager(db *gorm.DB) *PreferenceManager {
	return &PreferenceManager{db: db}
}

// GetUserPreferences returns every preference row of a user.
func (m *PreferenceManager) GetUserPreferences(ctx context.Context, userID string) ([]UserPreference, error) {
	var prefs []UserPreference
	if err := m.db.WithContext(ctx).Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		return nil, apperr.Upstream("get user preferences", err)
	}
	return prefs, nil
}

// SetUserPreference upserts one (user, channel, category) switch.
func (m *PreferenceManager) SetUserPreference(ctx context.Context, pref UserPreference) error {
	if err := validatePreference(pref); err != nil {
		return err
	}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "channel"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
	}).Create(&pref).Error
	return apperr.Upstream("set user preference", err)
}

// MemoryPreferenceStore keeps preferences in process.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string][]UserPreference
}

// NewMemoryPreferenceStore creates an empty store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string][]UserPreference)}
}

func (m *MemoryPreferenceStore) GetUserPreferences(_ context.Context, userID string) ([]UserPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]UserPreference(nil), m.prefs[userID]...), nil
}

func (m *MemoryPreferenceStore) SetUserPreference(_ context.Context, pref UserPreference) error {
	if err := validatePreference(pref); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.prefs[pref.UserID]
	for i := range list {
		if list[i].Channel == pref.Channel && list[i].Category == pref.Category {
			list[i].Enabled = pref.Enabled
			return nil
		}
	}
	m.prefs[pref.UserID] = append(list, pref)
	return nil
}

func validatePreference(pref UserPreference) error {
	if pref.UserID == "" {
		return apperr.Validation("preference user is required")
	}
	switch pref.Channel {
	case ChannelEmail, ChannelPush, ChannelSMS:
	case ChannelInApp:
		return apperr.Validation("in-app notifications cannot be disabled")
	default:
		return apperr.Validation("unknown channel %q", pref.Channel)
	}
	if pref.Category != CategoryAll && !Category(pref.Category).Valid() {
		return apperr.Validation("unknown category %q", pref.Category)
	}
	return nil
}

// StaticRecipientDirectory resolves recipients from a fixed map.
type StaticRecipientDirectory map[string]Recipient

func (d StaticRecipientDirectory) LookupRecipient(_ context.Context, id string) (*Recipient, error) {
	r, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("recipient %s: %w", id, apperr.ErrNotFound)
	}
	return &r, nil
}
