package history

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity bounds the in-memory log.
const DefaultMemoryCapacity = 1000

// InMemoryRepository keeps the most recent entries in memory. The oldest
// entry is dropped once capacity is reached.
type InMemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	entries  []*Entry
}

// NewInMemoryRepository creates an in-memory repository. A capacity of 0
// uses DefaultMemoryCapacity.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &InMemoryRepository{capacity: capacity}
}

// Append stores a new entry.
func (r *InMemoryRepository) Append(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry.clone())
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
	return nil
}

// Get retrieves an entry by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			return e.clone(), nil
		}
	}
	return nil, ErrEntryNotFound
}

// List returns entries newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := opts.EffectiveLimit()
	out := make([]*Entry, 0, min(limit, len(r.entries)))
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if opts.matches(r.entries[i]) {
			out = append(out, r.entries[i].clone())
		}
	}
	return out, nil
}

// Len returns the number of stored entries.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
