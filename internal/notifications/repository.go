package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// Query selects notifications. Zero-valued fields do not filter; archived
// notifications are excluded unless IncludeArchived is set.
type Query struct {
	IDs             []string
	RecipientID     string
	Types           []Type
	RelatedEntity   *EntityRef
	DedupeKey       string
	UnreadOnly      bool
	IncludeArchived bool
	CreatedSince    *time.Time
	ExpiredBefore   *time.Time
	Limit           int
	Offset          int
}

// Matches evaluates the query against one notification.
func (q Query) Matches(n *Notification) bool {
	if len(q.IDs) > 0 && !containsString(q.IDs, n.ID) {
		return false
	}
	if q.RecipientID != "" && n.RecipientID != q.RecipientID {
		return false
	}
	if len(q.Types) > 0 && !containsType(q.Types, n.Type) {
		return false
	}
	if q.RelatedEntity != nil {
		if n.RelatedEntity == nil || *n.RelatedEntity != *q.RelatedEntity {
			return false
		}
	}
	if q.DedupeKey != "" && n.DedupeKey != q.DedupeKey {
		return false
	}
	if q.UnreadOnly && n.IsRead {
		return false
	}
	if !q.IncludeArchived && n.IsArchived {
		return false
	}
	if q.CreatedSince != nil && n.CreatedAt.Before(*q.CreatedSince) {
		return false
	}
	if q.ExpiredBefore != nil && (n.ExpiresAt == nil || !n.ExpiresAt.Before(*q.ExpiredBefore)) {
		return false
	}
	return true
}

// Expectation guards a conditional update. A non-empty RecipientID must own
// the notification, otherwise the update fails with ErrUnauthorized.
type Expectation struct {
	RecipientID string
}

// Patch lists the mutable fields. DeliveryStatus entries are merged per channel.
type Patch struct {
	IsRead         *bool
	ReadAt         *time.Time
	IsArchived     *bool
	DeliveryStatus map[Channel]ChannelDeliveryStatus
}

// Apply writes the patch onto n.
func (p Patch) Apply(n *Notification) {
	if p.IsRead != nil {
		n.IsRead = *p.IsRead
	}
	if p.ReadAt != nil {
		t := *p.ReadAt
		n.ReadAt = &t
	}
	if p.IsArchived != nil {
		n.IsArchived = *p.IsArchived
	}
	if len(p.DeliveryStatus) > 0 && n.DeliveryStatus == nil {
		n.DeliveryStatus = make(map[Channel]ChannelDeliveryStatus, len(p.DeliveryStatus))
	}
	for ch, st := range p.DeliveryStatus {
		n.DeliveryStatus[ch] = st
	}
}

// Repository is the Notification Store.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Notification, error)
	FindByQuery(ctx context.Context, q Query) ([]*Notification, error)
	// Save inserts a new notification. A duplicate (recipient, dedupe key)
	// returns ErrConflict.
	Save(ctx context.Context, n *Notification) error
	ConditionalUpdate(ctx context.Context, id string, exp Expectation, patch Patch) (*Notification, error)
	CountBy(ctx context.Context, q Query) (int64, error)
	Delete(ctx context.Context, ids []string) (int64, error)
	LogDelivery(ctx context.Context, entry DeliveryLog) error
}

type notificationRecord struct {
	ID             string                                               `gorm:"primaryKey;type:uuid"`
	RecipientID    string                                               `gorm:"not null;uniqueIndex:idx_notifications_recipient_dedupe;index:idx_notifications_recipient_created"`
	Type           string                                               `gorm:"not null;index"`
	Category       string                                               `gorm:"not null"`
	Priority       string                                               `gorm:"not null"`
	Title          string                                               `gorm:"not null"`
	Message        string                                               `gorm:"not null"`
	RelatedKind    string                                               `gorm:"index:idx_notifications_related"`
	RelatedID      string                                               `gorm:"index:idx_notifications_related"`
	ActionLink     string                                               `gorm:""`
	Channels       datatypes.JSONType[ChannelSet]                       `gorm:"type:jsonb;not null"`
	DeliveryStatus datatypes.JSONType[map[Channel]ChannelDeliveryStatus] `gorm:"type:jsonb;not null"`
	IsRead         bool                                                 `gorm:"not null;default:false"`
	ReadAt         *time.Time                                           `gorm:""`
	IsArchived     bool                                                 `gorm:"not null;default:false"`
	CreatedAt      time.Time                                            `gorm:"not null;index:idx_notifications_recipient_created"`
	ExpiresAt      *time.Time                                           `gorm:"index"`
	DedupeKey      *string                                              `gorm:"uniqueIndex:idx_notifications_recipient_dedupe"`
}

func (notificationRecord) TableName() string { return "notifications" }

// GormRepository implements Repository with gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new notification repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates the notification tables.
func (r *GormRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&notificationRecord{},
		&UserPreference{},
		&DeliveryLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate notification tables: %w", err)
	}
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*Notification, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	var rec notificationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Upstream("find notification", err)
	}
	return rec.toModel(), nil
}

func (r *GormRepository) FindByQuery(ctx context.Context, q Query) ([]*Notification, error) {
	var recs []notificationRecord
	db := applyQuery(r.db.WithContext(ctx).Model(&notificationRecord{}), q).Order("created_at DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if err := db.Find(&recs).Error; err != nil {
		return nil, apperr.Upstream("query notifications", err)
	}

	out := make([]*Notification, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

func (r *GormRepository) Save(ctx context.Context, n *Notification) error {
	err := r.db.WithContext(ctx).Create(newNotificationRecord(n)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("notification %s/%s: %w", n.RecipientID, n.DedupeKey, apperr.ErrConflict)
	}
	return apperr.Upstream("save notification", err)
}

// ConditionalUpdate locks the row so concurrent delivery callbacks merge their
// channel statuses instead of overwriting each other.
func (r *GormRepository) ConditionalUpdate(ctx context.Context, id string, exp Expectation, patch Patch) (*Notification, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	var out *Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec notificationRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
		}
		if err != nil {
			return apperr.Upstream("lock notification", err)
		}
		if exp.RecipientID != "" && rec.RecipientID != exp.RecipientID {
			return fmt.Errorf("notification %s: %w", id, apperr.ErrUnauthorized)
		}

		n := rec.toModel()
		patch.Apply(n)
		updated := newNotificationRecord(n)
		err = tx.Model(&notificationRecord{}).Where("id = ?", id).Updates(map[string]any{
			"is_read":         updated.IsRead,
			"read_at":         updated.ReadAt,
			"is_archived":     updated.IsArchived,
			"delivery_status": updated.DeliveryStatus,
		}).Error
		if err != nil {
			return apperr.Upstream("update notification", err)
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepository) CountBy(ctx context.Context, q Query) (int64, error) {
	var n int64
	if err := applyQuery(r.db.WithContext(ctx).Model(&notificationRecord{}), q).Count(&n).Error; err != nil {
		return 0, apperr.Upstream("count notifications", err)
	}
	return n, nil
}

func (r *GormRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&notificationRecord{})
	if res.Error != nil {
		return 0, apperr.Upstream("delete notifications", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepository) LogDelivery(ctx context.Context, entry DeliveryLog) error {
	return apperr.Upstream("log delivery", r.db.WithContext(ctx).Create(&entry).Error)
}

func applyQuery(db *gorm.DB, q Query) *gorm.DB {
	if len(q.IDs) > 0 {
		db = db.Where("id IN ?", q.IDs)
	}
	if q.RecipientID != "" {
		db = db.Where("recipient_id = ?", q.RecipientID)
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		db = db.Where("type IN ?", types)
	}
	if q.RelatedEntity != nil {
		db = db.Where("related_kind = ? AND related_id = ?", q.RelatedEntity.Kind, q.RelatedEntity.ID)
	}
	if q.DedupeKey != "" {
		db = db.Where("dedupe_key = ?", q.DedupeKey)
	}
	if q.UnreadOnly {
		db = db.Where("is_read = ?", false)
	}
	if !q.IncludeArchived {
		db = db.Where("is_archived = ?", false)
	}
	if q.CreatedSince != nil {
		db = db.Where("created_at >= ?", *q.CreatedSince)
	}
	if q.ExpiredBefore != nil {
		db = db.Where("expires_at IS NOT NULL AND expires_at < ?", *q.ExpiredBefore)
	}
	return db
}

func newNotificationRecord(n *Notification) *notificationRecord {
	rec := &notificationRecord{
		ID:             n.ID,
		RecipientID:    n.RecipientID,
		Type:           string(n.Type),
		Category:       string(n.Category),
		Priority:       string(n.Priority),
		Title:          n.Title,
		Message:        n.Message,
		ActionLink:     n.ActionLink,
		Channels:       datatypes.NewJSONType(n.Channels),
		DeliveryStatus: datatypes.NewJSONType(n.DeliveryStatus),
		IsRead:         n.IsRead,
		ReadAt:         n.ReadAt,
		IsArchived:     n.IsArchived,
		CreatedAt:      n.CreatedAt,
		ExpiresAt:      n.ExpiresAt,
	}
	if n.RelatedEntity != nil {
		rec.RelatedKind = n.RelatedEntity.Kind
		rec.RelatedID = n.RelatedEntity.ID
	}
	if n.DedupeKey != "" {
		key := n.DedupeKey
		rec.DedupeKey = &key
	}
	return rec
}

func (rec *notificationRecord) toModel() *Notification {
	n := &Notification{
		ID:             rec.ID,
		RecipientID:    rec.RecipientID,
		Type:           Type(rec.Type),
		Category:       Category(rec.Category),
		Priority:       Priority(rec.Priority),
		Title:          rec.Title,
		Message:        rec.Message,
		ActionLink:     rec.ActionLink,
		Channels:       rec.Channels.Data(),
		DeliveryStatus: rec.DeliveryStatus.Data(),
		IsRead:         rec.IsRead,
		ReadAt:         rec.ReadAt,
		IsArchived:     rec.IsArchived,
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.ExpiresAt,
	}
	if n.DeliveryStatus == nil {
		n.DeliveryStatus = map[Channel]ChannelDeliveryStatus{}
	}
	if rec.RelatedKind != "" || rec.RelatedID != "" {
		n.RelatedEntity = &EntityRef{Kind: rec.RelatedKind, ID: rec.RelatedID}
	}
	if rec.DedupeKey != nil {
		n.DedupeKey = *rec.DedupeKey
	}
	return n
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(list []Type, t Type) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
