package collaboration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// MemoryRepository keeps requests in process. Conditional updates are atomic
// under its mutex, matching the guarantees of the SQL store.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*CollaborationRequest
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*CollaborationRequest)}
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*CollaborationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrNotFound)
	}
	return req.Clone(), nil
}

func (m *MemoryRepository) FindByQuery(_ context.Context, q Query) ([]*CollaborationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*CollaborationRequest, 0)
	for _, req := range m.items {
		if q.Matches(req) {
			matched = append(matched, req)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*CollaborationRequest{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]*CollaborationRequest, len(matched))
	for i, req := range matched {
		out[i] = req.Clone()
	}
	return out, nil
}

func (m *MemoryRepository) Save(_ context.Context, req *CollaborationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[req.ID]; exists {
		return fmt.Errorf("collaboration request %s: %w", req.ID, apperr.ErrConflict)
	}
	m.items[req.ID] = req.Clone()
	return nil
}

func (m *MemoryRepository) ConditionalUpdate(_ context.Context, id string, exp Expectation, patch Patch) (*CollaborationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrNotFound)
	}
	if req.Status != exp.Status || req.Version != exp.Version {
		return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrConcurrentModification)
	}
	patch.Apply(req)
	return req.Clone(), nil
}

func (m *MemoryRepository) CountBy(_ context.Context, q Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, req := range m.items {
		if q.Matches(req) {
			n++
		}
	}
	return n, nil
}
