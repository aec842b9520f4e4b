package store

import (
	"context"
	"sync"

	"travelcred/internal/ledger/models"
	"travelcred/pkg/platform/sentinel"
)

// InMemoryStore keeps the transition log in a slice indexed by seq-1.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e models.Entry) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := models.GenesisHash
	if n := len(s.entries); n > 0 {
		prev = s.entries[n-1].Hash
	}
	sealed, err := models.Seal(e, uint64(len(s.entries))+1, prev)
	if err != nil {
		return models.Entry{}, err
	}
	s.entries = append(s.entries, sealed)
	return sealed, nil
}

func (s *InMemoryStore) List(_ context.Context, afterSeq uint64, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if afterSeq >= uint64(len(s.entries)) {
		return []models.Entry{}, nil
	}
	end := len(s.entries)
	if limit > 0 && int(afterSeq)+limit < end {
		end = int(afterSeq) + limit
	}
	out := make([]models.Entry, end-int(afterSeq))
	copy(out, s.entries[afterSeq:end])
	return out, nil
}

func (s *InMemoryStore) HashAt(_ context.Context, seq uint64) ([]byte, error) {
	if seq == 0 {
		return models.GenesisHash, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seq > uint64(len(s.entries)) {
		return nil, sentinel.ErrNotFound
	}
	return s.entries[seq-1].Hash, nil
}
