package store

import (
	"context"
	"sync"

	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/sentinel"
)

// InMemoryStore keeps visas in id order with an applicant index.
type InMemoryStore struct {
	mu          sync.RWMutex
	records     []*models.Visa
	byApplicant map[domain.Identity][]domain.VisaID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byApplicant: make(map[domain.Identity][]domain.VisaID)}
}

func (s *InMemoryStore) NextID(_ context.Context) (domain.VisaID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.VisaID(len(s.records) + 1), nil
}

func (s *InMemoryStore) Create(_ context.Context, v *models.Visa) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID != domain.VisaID(len(s.records)+1) {
		return sentinel.ErrConflict
	}
	s.records = append(s.records, clone(v))
	s.byApplicant[v.Applicant] = append(s.byApplicant[v.Applicant], v.ID)
	return nil
}

func (s *InMemoryStore) get(id domain.VisaID) (*models.Visa, bool) {
	if id == 0 || id > domain.VisaID(len(s.records)) {
		return nil, false
	}
	return s.records[id-1], true
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.VisaID) (*models.Visa, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (s *InMemoryStore) IDsByApplicant(_ context.Context, applicant domain.Identity) ([]domain.VisaID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]domain.VisaID, 0, len(s.byApplicant[applicant])), s.byApplicant[applicant]...), nil
}

// Execute validates and mutates a copy, storing it only when validate passes.
func (s *InMemoryStore) Execute(_ context.Context, id domain.VisaID, validate func(*models.Visa) error, mutate func(*models.Visa)) (*models.Visa, error) {
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

func (s *InMemoryStore) List(_ context.Context, f models.ListFilter) ([]*models.Visa, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Visa, 0)
	if f.AfterID >= domain.VisaID(len(s.records)) {
		return out, nil
	}
	for _, v := range s.records[f.AfterID:] {
		if !f.Matches(v) {
			continue
		}
		out = append(out, clone(v))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
