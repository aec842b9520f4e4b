package store

import (
	"context"
	"sort"
	"sync"

	"travelcred/internal/identity/models"
	"travelcred/pkg/domain"
)

// InMemoryStore keeps officer sets in maps keyed by registry kind.
type InMemoryStore struct {
	mu       sync.RWMutex
	officers map[domain.RegistryKind]map[domain.Identity]models.Officer
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{officers: make(map[domain.RegistryKind]map[domain.Identity]models.Officer)}
}

func (s *InMemoryStore) Add(_ context.Context, o models.Officer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.officers[o.Kind]
	if !ok {
		set = make(map[domain.Identity]models.Officer)
		s.officers[o.Kind] = set
	}
	if _, exists := set[o.Identity]; exists {
		return false, nil
	}
	set[o.Identity] = o
	return true, nil
}

func (s *InMemoryStore) Remove(_ context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.officers[kind]
	if _, exists := set[identity]; !exists {
		return false, nil
	}
	delete(set, identity)
	return true, nil
}

func (s *InMemoryStore) Exists(_ context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.officers[kind][identity]
	return ok, nil
}

func (s *InMemoryStore) Count(_ context.Context, kind domain.RegistryKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.officers[kind]), nil
}

// List returns officers ordered by identity.
func (s *InMemoryStore) List(_ context.Context, kind domain.RegistryKind) ([]models.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Officer, 0, len(s.officers[kind]))
	for _, o := range s.officers[kind] {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}
