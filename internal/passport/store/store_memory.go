package store

import (
	"context"
	"sync"

	"travelcred/internal/passport/models"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/sentinel"
)

// InMemoryStore keeps passports in id order with holder and number indexes.
// Writers are serialized by the registry runner; the mutex only guards
// concurrent readers.
type InMemoryStore struct {
	mu       sync.RWMutex
	records  []*models.Passport
	byHolder map[domain.Identity][]domain.PassportID
	numbers  map[string]domain.PassportID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byHolder: make(map[domain.Identity][]domain.PassportID),
		numbers:  make(map[string]domain.PassportID),
	}
}

func (s *InMemoryStore) NextID(_ context.Context) (domain.PassportID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.PassportID(len(s.records) + 1), nil
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Passport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.numbers[p.PassportNumber]; taken {
		return sentinel.ErrConflict
	}
	if int(p.ID) != len(s.records)+1 {
		return sentinel.ErrConflict
	}
	s.records = append(s.records, clone(p))
	s.byHolder[p.Holder] = append(s.byHolder[p.Holder], p.ID)
	s.numbers[p.PassportNumber] = p.ID
	return nil
}

func (s *InMemoryStore) get(id domain.PassportID) (*models.Passport, bool) {
	if id == 0 || id > domain.PassportID(len(s.records)) {
		return nil, false
	}
	return s.records[id-1], true
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.PassportID) (*models.Passport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) FindByHolder(_ context.Context, holder domain.Identity) ([]*models.Passport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byHolder[holder]
	out := make([]*models.Passport, 0, len(ids))
	for _, id := range ids {
		p, _ := s.get(id)
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *InMemoryStore) NumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.numbers[number]
	return ok, nil
}

// Execute validates and mutates a copy, storing it only when validate passes.
func (s *InMemoryStore) Execute(_ context.Context, id domain.PassportID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := clone(current)
	if err := validate(next); err != nil {
		return nil, err
	}
	mutate(next)
	s.records[id-1] = next
	return clone(next), nil
}

func (s *InMemoryStore) List(_ context.Context, f models.ListFilter) ([]*models.Passport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Passport, 0)
	if f.AfterID >= domain.PassportID(len(s.records)) {
		return out, nil
	}
	for i := int(f.AfterID); i < len(s.records); i++ {
		p := s.records[i]
		if !f.Matches(p) {
			continue
		}
		out = append(out, clone(p))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
