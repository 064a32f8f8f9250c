package accounts

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
)

// Seed is one account of the in-process store.
type Seed struct {
	Account     requirements.Account
	DisplayName string
	IsAdmin     bool
	KYCStatus   string
	HostsEvents bool
}

// MemoryStore keeps accounts in memory. It serves local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	seeds map[string]Seed
}

func NewMemoryStore(seeds ...Seed) *MemoryStore {
	m := &MemoryStore{seeds: make(map[string]Seed, len(seeds))}
	for _, s := range seeds {
		m.Put(s)
	}
	return m
}

// Put adds or replaces an account.
func (m *MemoryStore) Put(s Seed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.KYCStatus == "" {
		s.KYCStatus = KYCNotStarted
	}
	m.seeds[s.Account.PartyID] = s
}

func (m *MemoryStore) LoadAccount(_ context.Context, partyID string) (*requirements.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.seeds[partyID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", partyID, apperr.ErrNotFound)
	}
	return cloneAccount(s.Account), nil
}

func (m *MemoryStore) ListAccounts(_ context.Context) ([]*requirements.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*requirements.Account{}
	for _, id := range m.sortedIDs() {
		if s := m.seeds[id]; !s.IsAdmin {
			out = append(out, cloneAccount(s.Account))
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAdmins(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for _, id := range m.sortedIDs() {
		if m.seeds[id].IsAdmin {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *MemoryStore) IsAdmin(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seeds[userID].IsAdmin, nil
}

func (m *MemoryStore) LookupRecipient(_ context.Context, id string) (*notifications.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.seeds[id]
	if !ok {
		return nil, fmt.Errorf("recipient %s: %w", id, apperr.ErrNotFound)
	}
	return &notifications.Recipient{
		ID:          id,
		DisplayName: s.DisplayName,
		Email:       s.Account.Profile["email"],
		Phone:       s.Account.Profile["phone"],
	}, nil
}

func (m *MemoryStore) HostsWithPendingKYC(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for _, id := range m.sortedIDs() {
		s := m.seeds[id]
		if s.HostsEvents && s.KYCStatus != KYCVerified {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *MemoryStore) sortedIDs() []string {
	ids := make([]string, 0, len(m.seeds))
	for id := range m.seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneAccount(a requirements.Account) *requirements.Account {
	out := a
	out.Profile = cloneMap(a.Profile)
	out.Payout = cloneMap(a.Payout)
	if a.Subscription != nil {
		sub := *a.Subscription
		out.Subscription = &sub
	}
	return &out
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
