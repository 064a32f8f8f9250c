package notifications

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// MemoryRepository keeps notifications in process, enforcing the same
// (recipient, dedupe key) uniqueness as the SQL store.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Notification
	logs  []DeliveryLog
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*Notification)}
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	return n.Clone(), nil
}

func (m *MemoryRepository) FindByQuery(_ context.Context, q Query) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*Notification, 0)
	for _, n := range m.items {
		if q.Matches(n) {
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*Notification{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]*Notification, len(matched))
	for i, n := range matched {
		out[i] = n.Clone()
	}
	return out, nil
}

func (m *MemoryRepository) Save(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[n.ID]; exists {
		return fmt.Errorf("notification %s: %w", n.ID, apperr.ErrConflict)
	}
	if n.DedupeKey != "" {
		for _, existing := range m.items {
			if existing.RecipientID == n.RecipientID && existing.DedupeKey == n.DedupeKey {
				return fmt.Errorf("notification %s/%s: %w", n.RecipientID, n.DedupeKey, apperr.ErrConflict)
			}
		}
	}
	m.items[n.ID] = n.Clone()
	return nil
}

func (m *MemoryRepository) ConditionalUpdate(_ context.Context, id string, exp Expectation, patch Patch) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	if exp.RecipientID != "" && n.RecipientID != exp.RecipientID {
		return nil, fmt.Errorf("notification %s: %w", id, apperr.ErrUnauthorized)
	}
	patch.Apply(n)
	return n.Clone(), nil
}

func (m *MemoryRepository) CountBy(_ context.Context, q Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, n := range m.items {
		if q.Matches(n) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryRepository) Delete(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryRepository) LogDelivery(_ context.Context, entry DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// DeliveryLogs returns the delivery attempts recorded so far.
func (m *MemoryRepository) DeliveryLogs() []DeliveryLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]DeliveryLog(nil), m.logs...)
}
