package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"travelcred/internal/ledger/models"
	"travelcred/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func draft(entity uint64) models.Entry {
	return models.Entry{
		EventID:         uuid.New(),
		Source:          models.SourceVisa,
		EntityID:        entity,
		Operation:       models.OpApplyForVisa,
		Arguments:       json.RawMessage(`{"destination_country":"France"}`),
		ResultingStatus: "Pending",
		Actor:           "0xholder",
		OccurredAt:      time.Now(),
	}
}

func (s *InMemoryStoreSuite) TestAppendAssignsSequenceAndChain() {
	first, err := s.store.Append(s.ctx, draft(1))
	s.Require().NoError(err)
	second, err := s.store.Append(s.ctx, draft(2))
	s.Require().NoError(err)

	s.Equal(uint64(1), first.Seq)
	s.Equal(uint64(2), second.Seq)
	s.Equal(first.Hash, second.PrevHash)

	all, err := s.store.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	s.Require().NoError(models.VerifyChain(all, models.GenesisHash))
}

func (s *InMemoryStoreSuite) TestListPagination() {
	for i := 1; i <= 5; i++ {
		_, err := s.store.Append(s.ctx, draft(uint64(i)))
		s.Require().NoError(err)
	}

	s.Run("after and limit", func() {
		page, err := s.store.List(s.ctx, 2, 2)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.Equal(uint64(3), page[0].Seq)
		s.Equal(uint64(4), page[1].Seq)
	})

	s.Run("past the end is empty", func() {
		page, err := s.store.List(s.ctx, 5, 10)
		s.Require().NoError(err)
		s.Empty(page)
	})

	s.Run("hash at", func() {
		h, err := s.store.HashAt(s.ctx, 0)
		s.Require().NoError(err)
		s.Equal(models.GenesisHash, h)

		_, err = s.store.HashAt(s.ctx, 6)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func TestInMemoryStore_ConcurrentAppendsStayContiguous(t *testing.T) {
	store := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Append(context.Background(), draft(uint64(i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := store.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 50)
	require.NoError(t, models.VerifyChain(all, models.GenesisHash))
}
