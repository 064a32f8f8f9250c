// Package accounts reads user, payout and subscription data owned by the
// account service. It backs the admin and recipient directories and the
// requirement evaluator.
package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
)

// KYC states of a host account.
const (
	KYCNotStarted = "not_started"
	KYCPending    = "pending"
	KYCVerified   = "verified"
)

// userRow is one row of the users table joined with payout and subscription.
type userRow struct {
	ID          string         `db:"id"`
	Role        string         `db:"role"`
	DisplayName string         `db:"display_name"`
	Email       sql.NullString `db:"email"`
	Phone       sql.NullString `db:"phone"`
	IsAdmin     bool           `db:"is_admin"`
	KYCStatus   string         `db:"kyc_status"`
	Profile     types.JSONText `db:"profile"`

	AccountHolderName sql.NullString `db:"account_holder_name"`
	AccountNumber     sql.NullString `db:"account_number"`
	BankCode          sql.NullString `db:"bank_code"`
	BankName          sql.NullString `db:"bank_name"`

	Plan               sql.NullString `db:"plan"`
	SubscriptionStatus sql.NullString `db:"subscription_status"`
	SubscriptionEnds   sql.NullTime   `db:"subscription_expires_at"`
}

const selectAccount = `
	SELECT u.id, u.role, u.display_name, u.email, u.phone, u.is_admin, u.kyc_status, u.profile,
	       p.account_holder_name, p.account_number, p.bank_code, p.bank_name,
	       s.plan, s.status AS subscription_status, s.expires_at AS subscription_expires_at
	FROM users u
	LEFT JOIN payout_details p ON p.user_id = u.id
	LEFT JOIN subscriptions s ON s.user_id = u.id
`

// PostgresStore reads accounts with sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new account store
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// LoadAccount implements requirements.AccountSource.
func (s *PostgresStore) LoadAccount(ctx context.Context, partyID string) (*requirements.Account, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, selectAccount+` WHERE u.id = $1`, partyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", partyID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Upstream("load account", err)
	}
	return row.toAccount()
}

// ListAccounts returns every non-admin account, for the profile sweep.
func (s *PostgresStore) ListAccounts(ctx context.Context) ([]*requirements.Account, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, selectAccount+` WHERE NOT u.is_admin ORDER BY u.id`); err != nil {
		return nil, apperr.Upstream("list accounts", err)
	}
	out := make([]*requirements.Account, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toAccount()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ListAdmins implements the workflow's admin directory.
func (s *PostgresStore) ListAdmins(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE is_admin ORDER BY id`); err != nil {
		return nil, apperr.Upstream("list admins", err)
	}
	return ids, nil
}

// IsAdmin implements the workflow's admin directory.
func (s *PostgresStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.db.GetContext(ctx, &isAdmin, `SELECT is_admin FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Upstream("check admin", err)
	}
	return isAdmin, nil
}

// LookupRecipient implements notifications.RecipientDirectory.
func (s *PostgresStore) LookupRecipient(ctx context.Context, id string) (*notifications.Recipient, error) {
	var r notifications.Recipient
	err := s.db.GetContext(ctx, &r, `
		SELECT id, display_name, COALESCE(email, '') AS email, COALESCE(phone, '') AS phone
		FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipient %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Upstream("lookup recipient", err)
	}
	return &r, nil
}

// HostsWithPendingKYC returns hosts of at least one event whose KYC is not verified.
func (s *PostgresStore) HostsWithPendingKYC(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT u.id
		FROM users u
		JOIN events e ON e.host_id = u.id
		WHERE u.kyc_status IN ($1, $2)
		ORDER BY u.id`, KYCNotStarted, KYCPending)
	if err != nil {
		return nil, apperr.Upstream("list hosts with pending kyc", err)
	}
	return ids, nil
}

func (r *userRow) toAccount() (*requirements.Account, error) {
	profile, err := decodeProfile(r.Profile)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", r.ID, err)
	}
	profile["email"] = r.Email.String
	profile["phone"] = r.Phone.String

	a := &requirements.Account{
		PartyID: r.ID,
		Role:    requirements.Role(r.Role),
		Profile: profile,
		Payout: map[string]string{
			"account_holder_name": r.AccountHolderName.String,
			"account_number":      r.AccountNumber.String,
			"bank_code":           r.BankCode.String,
			"bank_name":           r.BankName.String,
		},
	}
	if r.Plan.Valid {
		a.Subscription = &requirements.Subscription{Plan: r.Plan.String, Status: r.SubscriptionStatus.String}
		if r.SubscriptionEnds.Valid {
			t := r.SubscriptionEnds.Time
			a.Subscription.ExpiresAt = &t
		}
	}
	return a, nil
}

// decodeProfile flattens the profile document to strings. Numbers such as
// capacity are rendered in decimal; null values count as missing.
func decodeProfile(raw types.JSONText) (map[string]string, error) {
	out := map[string]string{}
	if len(raw) == 0 {
		return out, nil
	}
	var doc map[string]any
	if err := raw.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	for k, v := range doc {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			b, _ := json.Marshal(val)
			out[k] = string(b)
		}
	}
	return out, nil
}
