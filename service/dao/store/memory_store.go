package store

import (
	"context"
	"sync"

	"github.com/viant/approvals/service/dao"
	"github.com/viant/approvals/service/dao/criteria"
)

// MemoryStore keeps workflow records of type *T in a map keyed by K.
// keySelector extracts the key from a record; statusSelector, when set,
// lets List honour "Status" filter parameters.
type MemoryStore[K comparable, T any] struct {
	mu             sync.RWMutex
	records        map[K]*T
	keySelector    func(*T) K
	statusSelector func(*T) string
}

// NewMemoryStore creates an in-process store keyed by keySelector.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// WithStatusSelector enables status-based List filtering.
func (s *MemoryStore[K, T]) WithStatusSelector(selector func(*T) string) *MemoryStore[K, T] {
	s.statusSelector = selector
	return s
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = v
	return nil
}

// Load returns the record under key, or dao.ErrNotFound.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return v, nil
}

// Delete removes the record under key, or returns dao.ErrNotFound.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns records matching the optional filter parameters.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.statusSelector != nil && !criteria.FilterByStatus(s.statusSelector(v), parameters) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
