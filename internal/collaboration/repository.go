package collaboration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// Repository is the persistence contract of the workflow.
type Repository interface {
	FindByID(ctx context.Context, id string) (*CollaborationRequest, error)
	FindByQuery(ctx context.Context, q Query) ([]*CollaborationRequest, error)
	Save(ctx context.Context, req *CollaborationRequest) error
	// ConditionalUpdate applies patch only if the stored request still has the
	// expected status and version. A lost race returns ErrConcurrentModification.
	ConditionalUpdate(ctx context.Context, id string, exp Expectation, patch Patch) (*CollaborationRequest, error)
	CountBy(ctx context.Context, q Query) (int64, error)
}

// requestRecord is the row shape of collaboration_requests.
type requestRecord struct {
	ID            string         `gorm:"primaryKey;type:uuid"`
	Kind          string         `gorm:"not null"`
	InitiatorID   string         `gorm:"not null;index"`
	InitiatorRole string         `gorm:""`
	InitiatorName string         `gorm:""`
	RecipientID   string         `gorm:"not null;index"`
	RecipientRole string         `gorm:""`
	RecipientName string         `gorm:""`
	Status        string         `gorm:"not null;index"`
	AdminReview   datatypes.JSON `gorm:"type:jsonb;not null;default:'null'"`
	CounterReview datatypes.JSON `gorm:"type:jsonb;not null;default:'null'"`
	Details       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	Response      datatypes.JSON `gorm:"type:jsonb;not null;default:'null'"`
	Messages      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	EventDate     *time.Time     `gorm:"index"`
	Priority      string         `gorm:"not null"`
	ExpiresAt     time.Time      `gorm:"not null;index"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
	Version       int64          `gorm:"not null;default:1"`
}

func (requestRecord) TableName() string { return "collaboration_requests" }

// GormRepository implements Repository on PostgreSQL through gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the collaboration_requests table.
func (r *GormRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&requestRecord{}); err != nil {
		return fmt.Errorf("failed to migrate collaboration requests: %w", err)
	}
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*CollaborationRequest, error) {
	// ids are uuid columns; anything else can never match
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrNotFound)
	}
	var rec requestRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Upstream("find collaboration request", err)
	}
	return rec.toModel()
}

func (r *GormRepository) FindByQuery(ctx context.Context, q Query) ([]*CollaborationRequest, error) {
	var recs []requestRecord
	db := applyQuery(r.db.WithContext(ctx).Model(&requestRecord{}), q).Order("created_at DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if err := db.Find(&recs).Error; err != nil {
		return nil, apperr.Upstream("query collaboration requests", err)
	}

	out := make([]*CollaborationRequest, 0, len(recs))
	for i := range recs {
		req, err := recs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *GormRepository) Save(ctx context.Context, req *CollaborationRequest) error {
	rec, err := newRequestRecord(req)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("collaboration request %s: %w", req.ID, apperr.ErrConflict)
	}
	return apperr.Upstream("save collaboration request", err)
}

func (r *GormRepository) ConditionalUpdate(ctx context.Context, id string, exp Expectation, patch Patch) (*CollaborationRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrNotFound)
	}
	cols, err := patchColumns(patch)
	if err != nil {
		return nil, err
	}
	cols["version"] = exp.Version + 1

	res := r.db.WithContext(ctx).Model(&requestRecord{}).
		Where("id = ? AND status = ? AND version = ?", id, string(exp.Status), exp.Version).
		Updates(cols)
	if res.Error != nil {
		return nil, apperr.Upstream("update collaboration request", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrConcurrentModification)
	}
	return r.FindByID(ctx, id)
}

func (r *GormRepository) CountBy(ctx context.Context, q Query) (int64, error) {
	var n int64
	if err := applyQuery(r.db.WithContext(ctx).Model(&requestRecord{}), q).Count(&n).Error; err != nil {
		return 0, apperr.Upstream("count collaboration requests", err)
	}
	return n, nil
}

// NormalizeLegacyRows rewrites statuses stored under legacy aliases and folds
// the flat proposer_id / recipient_user_id columns of older rows into the
// party snapshot columns. It is safe to run more than once.
func (r *GormRepository) NormalizeLegacyRows(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)
	var total int64

	for alias, status := range legacyAliases {
		res := db.Model(&requestRecord{}).Where("status = ?", alias).Update("status", string(status))
		if res.Error != nil {
			return total, apperr.Upstream("normalize legacy statuses", res.Error)
		}
		total += res.RowsAffected
	}

	legacyColumns := map[string]string{
		"proposer_id":       "initiator_id",
		"recipient_user_id": "recipient_id",
	}
	for legacy, current := range legacyColumns {
		if !db.Migrator().HasColumn(&requestRecord{}, legacy) {
			continue
		}
		res := db.Exec(fmt.Sprintf(
			"UPDATE collaboration_requests SET %[2]s = %[1]s WHERE (%[2]s IS NULL OR %[2]s = '') AND %[1]s IS NOT NULL",
			legacy, current))
		if res.Error != nil {
			return total, apperr.Upstream("fold legacy party columns", res.Error)
		}
		total += res.RowsAffected
	}
	return total, nil
}

var hiddenFromRecipient = []string{string(StatusSubmitted), string(StatusAdminRejected)}

func applyQuery(db *gorm.DB, q Query) *gorm.DB {
	if q.InitiatorID != "" {
		db = db.Where("initiator_id = ?", q.InitiatorID)
	}
	if q.RecipientID != "" {
		db = db.Where("recipient_id = ?", q.RecipientID)
	}
	if q.VisibleTo != "" {
		db = db.Where("(initiator_id = ? OR (recipient_id = ? AND status NOT IN ?))",
			q.VisibleTo, q.VisibleTo, hiddenFromRecipient)
	}
	if q.Kind != "" {
		db = db.Where("kind = ?", string(q.Kind))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		db = db.Where("status IN ?", statuses)
	}
	if q.ExpiresBefore != nil {
		db = db.Where("expires_at < ?", *q.ExpiresBefore)
	}
	return db
}

func patchColumns(p Patch) (map[string]any, error) {
	cols := map[string]any{}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.AdminReview != nil {
		raw, err := toJSON(p.AdminReview)
		if err != nil {
			return nil, err
		}
		cols["admin_review"] = raw
	}
	if p.CounterReview != nil {
		raw, err := toJSON(p.CounterReview)
		if err != nil {
			return nil, err
		}
		cols["counter_review"] = raw
	}
	if p.Details != nil {
		raw, err := toJSON(p.Details)
		if err != nil {
			return nil, err
		}
		cols["details"] = raw
		cols["event_date"] = p.Details.EventDate
	}
	if p.Response != nil {
		raw, err := toJSON(p.Response)
		if err != nil {
			return nil, err
		}
		cols["response"] = raw
	}
	if p.Messages != nil {
		raw, err := toJSON(p.Messages)
		if err != nil {
			return nil, err
		}
		cols["messages"] = raw
	}
	if p.Priority != nil {
		cols["priority"] = string(*p.Priority)
	}
	if !p.UpdatedAt.IsZero() {
		cols["updated_at"] = p.UpdatedAt
	}
	return cols, nil
}

func newRequestRecord(req *CollaborationRequest) (*requestRecord, error) {
	rec := &requestRecord{
		ID:            req.ID,
		Kind:          string(req.Kind),
		InitiatorID:   req.Initiator.PartyID,
		InitiatorRole: req.Initiator.PartyRole,
		InitiatorName: req.Initiator.DisplayName,
		RecipientID:   req.Recipient.PartyID,
		RecipientRole: req.Recipient.PartyRole,
		RecipientName: req.Recipient.DisplayName,
		Status:        string(req.Status),
		EventDate:     req.Details.EventDate,
		Priority:      string(req.Priority),
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
		Version:       req.Version,
	}

	messages := req.Messages
	if messages == nil {
		messages = []Message{}
	}
	var err error
	if rec.AdminReview, err = toJSON(req.AdminReview); err != nil {
		return nil, err
	}
	if rec.CounterReview, err = toJSON(req.CounterReview); err != nil {
		return nil, err
	}
	if rec.Details, err = toJSON(req.Details); err != nil {
		return nil, err
	}
	if rec.Response, err = toJSON(req.Response); err != nil {
		return nil, err
	}
	if rec.Messages, err = toJSON(messages); err != nil {
		return nil, err
	}
	return rec, nil
}

func (rec *requestRecord) toModel() (*CollaborationRequest, error) {
	status, err := NormalizeStatus(rec.Status)
	if err != nil {
		return nil, err
	}
	req := &CollaborationRequest{
		ID:        rec.ID,
		Kind:      Kind(rec.Kind),
		Initiator: Party{PartyID: rec.InitiatorID, PartyRole: rec.InitiatorRole, DisplayName: rec.InitiatorName},
		Recipient: Party{PartyID: rec.RecipientID, PartyRole: rec.RecipientRole, DisplayName: rec.RecipientName},
		Status:    status,
		Priority:  Priority(rec.Priority),
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Version:   rec.Version,
	}
	if err := fromJSON(rec.AdminReview, &req.AdminReview); err != nil {
		return nil, err
	}
	if err := fromJSON(rec.CounterReview, &req.CounterReview); err != nil {
		return nil, err
	}
	if err := fromJSON(rec.Details, &req.Details); err != nil {
		return nil, err
	}
	if err := fromJSON(rec.Response, &req.Response); err != nil {
		return nil, err
	}
	if err := fromJSON(rec.Messages, &req.Messages); err != nil {
		return nil, err
	}
	if req.Messages == nil {
		req.Messages = []Message{}
	}
	return req, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func fromJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
