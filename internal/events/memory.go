package events

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps events in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]Event
	attendees map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: map[string]Event{}, attendees: map[string][]string{}}
}

// Put adds or replaces an event with its attendees.
func (m *MemoryStore) Put(e Event, attendees ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	m.attendees[e.ID] = append([]string(nil), attendees...)
}

func (m *MemoryStore) StartingBetween(_ context.Context, from, to time.Time) ([]Event, error) {
	return m.filter(func(e Event) bool {
		return e.Status == StatusPublished && !e.StartsAt.Before(from) && e.StartsAt.Before(to)
	}, func(e Event) time.Time { return e.StartsAt }), nil
}

func (m *MemoryStore) EndedBetween(_ context.Context, from, to time.Time) ([]Event, error) {
	return m.filter(func(e Event) bool {
		return e.Status == StatusPublished && !e.EndsAt.Before(from) && !e.EndsAt.After(to)
	}, func(e Event) time.Time { return e.EndsAt }), nil
}

func (m *MemoryStore) DraftsCreatedBefore(_ context.Context, cutoff time.Time) ([]Event, error) {
	return m.filter(func(e Event) bool {
		return e.Status == StatusDraft && e.CreatedAt.Before(cutoff)
	}, func(e Event) time.Time { return e.CreatedAt }), nil
}

func (m *MemoryStore) Attendees(_ context.Context, eventIDs []string) (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(eventIDs))
	for _, id := range eventIDs {
		if ids := m.attendees[id]; len(ids) > 0 {
			sorted := append([]string(nil), ids...)
			sort.Strings(sorted)
			out[id] = sorted
		}
	}
	return out, nil
}

func (m *MemoryStore) filter(keep func(Event) bool, key func(Event) time.Time) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Event{}
	for _, e := range m.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if ki.Equal(kj) {
			return out[i].ID < out[j].ID
		}
		return ki.Before(kj)
	})
	return out
}
