package accounts

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the shape of the account tables this package reads. The tables
// belong to the account service; Migrate exists for local runs and
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	role         TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	email        TEXT,
	phone        TEXT,
	is_admin     BOOLEAN NOT NULL DEFAULT FALSE,
	kyc_status   TEXT NOT NULL DEFAULT 'not_started',
	profile      JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payout_details (
	user_id             TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	account_holder_name TEXT,
	account_number      TEXT,
	bank_code           TEXT,
	bank_name           TEXT
);

CREATE TABLE IF NOT EXISTS subscriptions (
	user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	plan       TEXT NOT NULL,
	status     TEXT NOT NULL,
	expires_at TIMESTAMPTZ
);
`

// Migrate creates the account tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate account tables: %w", err)
	}
	return nil
}
