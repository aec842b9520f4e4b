package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/sentinel"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

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

func (s *InMemoryStoreSuite) create(applicant string) *models.Visa {
	id, err := s.store.NextID(s.ctx)
	s.Require().NoError(err)
	v := models.NewVisa(id, domain.Identity(applicant), models.Application{
		PassportID: 1, DestinationCountry: "JPN", Type: models.TypeTourist,
	}, t0)
	s.Require().NoError(s.store.Create(s.ctx, v))
	return v
}

func (s *InMemoryStoreSuite) TestApplicantIndexKeepsInsertionOrder() {
	s.create("0xa")
	s.create("0xb")
	s.create("0xa")

	ids, err := s.store.IDsByApplicant(s.ctx, "0xa")
	s.Require().NoError(err)
	s.Equal([]domain.VisaID{1, 3}, ids)

	ids, err = s.store.IDsByApplicant(s.ctx, "0xnobody")
	s.Require().NoError(err)
	s.NotNil(ids)
	s.Empty(ids)
}

func (s *InMemoryStoreSuite) TestCreateRejectsOutOfSequenceID() {
	s.create("0xa")
	v := models.NewVisa(5, "0xb", models.Application{PassportID: 1}, t0)
	s.ErrorIs(s.store.Create(s.ctx, v), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestExecuteLeavesRecordUntouchedOnValidationFailure() {
	s.create("0xa")
	_, err := s.store.Execute(s.ctx, 1,
		func(v *models.Visa) error { return dErrors.New(dErrors.CodeInvalidState, "nope") },
		func(v *models.Visa) { v.ApplyReject("should not happen") })
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	got, err := s.store.FindByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)
	s.Empty(got.RejectionReason)
}

func (s *InMemoryStoreSuite) TestExecuteUnknownID() {
	_, err := s.store.Execute(s.ctx, 42,
		func(*models.Visa) error { return nil },
		func(*models.Visa) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestReturnedRecordsAreCopies() {
	s.create("0xa")
	got, err := s.store.FindByID(s.ctx, 1)
	s.Require().NoError(err)
	got.Status = models.StatusRevoked

	again, err := s.store.FindByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, again.Status)
}

func (s *InMemoryStoreSuite) TestListFiltersAndPages() {
	for range 4 {
		s.create("0xa")
	}
	_, err := s.store.Execute(s.ctx, 2,
		func(*models.Visa) error { return nil },
		func(v *models.Visa) { v.ApplyApprove(t0, 1, "0xofficer") })
	s.Require().NoError(err)

	later := t0.Add(40 * 24 * time.Hour)
	expired, err := s.store.List(s.ctx, models.ListFilter{Statuses: []models.Status{models.StatusExpired}, Now: later})
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal(domain.VisaID(2), expired[0].ID)

	page, err := s.store.List(s.ctx, models.ListFilter{AfterID: 1, Limit: 2, Now: later})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(domain.VisaID(2), page[0].ID)
	s.Equal(domain.VisaID(3), page[1].ID)

	past, err := s.store.List(s.ctx, models.ListFilter{AfterID: 1 << 62})
	s.Require().NoError(err)
	s.Empty(past)
}
