package collaboration

import (
	"context"

	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
)

// AdminDirectory lists the accounts allowed to pass the admin gates.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]string, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Directory resolves the accounts a request is exchanged between. Party
// snapshots are always taken from here, never from client input.
type Directory interface {
	AdminDirectory
	LoadAccount(ctx context.Context, partyID string) (*requirements.Account, error)
	LookupRecipient(ctx context.Context, id string) (*notifications.Recipient, error)
}

// StaticAdminDirectory is a fixed admin list.
type StaticAdminDirectory []string

func (d StaticAdminDirectory) ListAdmins(context.Context) ([]string, error) {
	return append([]string(nil), d...), nil
}

func (d StaticAdminDirectory) IsAdmin(_ context.Context, userID string) (bool, error) {
	for _, id := range d {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
