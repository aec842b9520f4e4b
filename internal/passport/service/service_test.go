package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	identityservice "travelcred/internal/identity/service"
	identitystore "travelcred/internal/identity/store"
	ledger "travelcred/internal/ledger/models"
	ledgerservice "travelcred/internal/ledger/service"
	ledgerstore "travelcred/internal/ledger/store"
	"travelcred/internal/notifier"
	passportmetrics "travelcred/internal/passport/metrics"
	"travelcred/internal/passport/models"
	"travelcred/internal/passport/store"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/requestcontext"
)

const (
	admin   domain.Identity = "0xadmin"
	officer domain.Identity = "0xofficer"
	holder  domain.Identity = "0xholder1"
)

var t0 = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type capturePublisher struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (p *capturePublisher) Publish(e notifier.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) snapshot() []notifier.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifier.Event(nil), p.events...)
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	svc       *Service
	log       *ledgerservice.Service
	published *capturePublisher
	metrics   *passportmetrics.Metrics
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), t0)
	s.log = ledgerservice.New(ledgerstore.NewInMemory())
	s.published = &capturePublisher{}
	s.metrics = passportmetrics.New(prometheus.NewRegistry())

	authority, err := identityservice.New(admin, identitystore.NewInMemory(), s.log)
	s.Require().NoError(err)
	s.Require().NoError(authority.AddOfficer(s.ctx, admin, domain.RegistryPassport, officer))

	s.svc = New(store.NewInMemory(), authority, s.log,
		WithPublisher(s.published),
		WithMetrics(s.metrics),
	)
}

func application(number string) models.Application {
	return models.Application{
		FullName:       "Holder One",
		DateOfBirth:    "1990-01-01",
		Nationality:    "FR",
		PassportNumber: number,
	}
}

func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) passportEvents() []notifier.Type {
	var out []notifier.Type
	for _, e := range s.published.snapshot() {
		if e.Type != notifier.OfficerAdded {
			out = append(out, e.Type)
		}
	}
	return out
}

func (s *ServiceSuite) TestScenarioA_ApplyIssueVerify() {
	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	s.Equal(domain.PassportID(1), id)

	p, err := s.svc.GetPassport(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, p.Status)
	s.True(p.IssueDate.IsZero())
	s.True(p.ExpiryDate.IsZero())

	issued, err := s.svc.IssuePassport(s.ctx, officer, id, 10)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, issued.Status)
	s.Equal(t0, issued.IssueDate)
	s.Equal(t0.AddDate(10, 0, 0), issued.ExpiryDate)

	ok, err := s.svc.VerifyPassport(s.ctx, id)
	s.Require().NoError(err)
	s.True(ok)

	s.Equal([]notifier.Type{notifier.PassportApplied, notifier.PassportIssued}, s.passportEvents())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Transitions.WithLabelValues(string(ledger.OpIssuePassport))))
}

func (s *ServiceSuite) TestScenarioD_SecondApplicationWhileActive() {
	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	_, err = s.svc.IssuePassport(s.ctx, officer, id, 10)
	s.Require().NoError(err)

	_, err = s.svc.ApplyForPassport(s.ctx, holder, application("P2"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateApplication))

	next, err := s.svc.ApplyForPassport(s.ctx, "0xholder2", application("P2"))
	s.Require().NoError(err)
	s.Equal(domain.PassportID(2), next, "failed application must not consume an id")
}

func (s *ServiceSuite) TestScenarioE_NonOfficerCannotIssue() {
	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	_, err = s.svc.IssuePassport(s.ctx, officer, id, 10)
	s.Require().NoError(err)
	before, err := s.svc.GetPassport(s.ctx, id)
	s.Require().NoError(err)

	_, err = s.svc.IssuePassport(s.ctx, "0xmallory", id, 10)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.RevokePassport(s.ctx, holder, id, "self-revoke")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	after, err := s.svc.GetPassport(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *ServiceSuite) TestPendingApplicationBlocksHolder() {
	_, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	_, err = s.svc.ApplyForPassport(s.ctx, holder, application("P2"))
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateApplication))
}

func (s *ServiceSuite) TestPassportNumberNeverReused() {
	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	_, err = s.svc.RevokePassport(s.ctx, officer, id, "withdrawn")
	s.Require().NoError(err)

	_, err = s.svc.ApplyForPassport(s.ctx, "0xholder2", application("P1"))
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateApplication))

	_, err = s.svc.ApplyForPassport(s.ctx, holder, application("P1-B"))
	s.NoError(err, "revoked record no longer blocks its holder")
}

func (s *ServiceSuite) TestValidation() {
	_, err := s.svc.ApplyForPassport(s.ctx, holder, models.Application{FullName: "x", DateOfBirth: "y", Nationality: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.ApplyForPassport(s.ctx, "", application("P1"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	_, err = s.svc.IssuePassport(s.ctx, officer, id, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestNotFound() {
	_, err := s.svc.IssuePassport(s.ctx, officer, 99, 10)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.RevokePassport(s.ctx, officer, 99, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.GetPassport(s.ctx, 99)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	ok, err := s.svc.VerifyPassport(s.ctx, 99)
	s.Require().NoError(err)
	s.False(ok)

	id, err := s.svc.GetPassportByHolder(s.ctx, "0xnobody")
	s.Require().NoError(err)
	s.True(id.IsZero())
}

func (s *ServiceSuite) TestTerminalStatesAreFinal() {
	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	revoked, err := s.svc.RevokePassport(s.ctx, officer, id, "")
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, revoked.Status)

	_, err = s.svc.IssuePassport(s.ctx, officer, id, 10)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = s.svc.RevokePassport(s.ctx, officer, id, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	entries, err := s.log.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	var passportEntries []ledger.Entry
	for _, e := range entries {
		if e.Source == ledger.SourcePassport {
			passportEntries = append(passportEntries, e)
		}
	}
	s.Require().Len(passportEntries, 2)
	s.Equal("Revoked", passportEntries[1].ResultingStatus)
}

func (s *ServiceSuite) TestDerivedExpiry() {
	id, err := s.svc.ApplyForPassport(s.ctx, holder, application("P1"))
	s.Require().NoError(err)
	_, err = s.svc.IssuePassport(s.ctx, officer, id, 1)
	s.Require().NoError(err)

	later := s.at(t0.AddDate(1, 0, 0))
	ok, err := s.svc.VerifyPassport(later, id)
	s.Require().NoError(err)
	s.False(ok)

	p, err := s.svc.GetPassport(later, id)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, p.Status)

	_, err = s.svc.RevokePassport(later, officer, id, "late")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	list, err := s.svc.ListPassports(later, models.ListFilter{Statuses: []models.Status{models.StatusExpired}})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(models.StatusExpired, list[0].Status)

	renewed, err := s.svc.ApplyForPassport(later, holder, application("P2"))
	s.Require().NoError(err)
	s.Equal(domain.PassportID(2), renewed)

	latest, err := s.svc.GetPassportByHolder(later, holder)
	s.Require().NoError(err)
	s.Equal(renewed, latest)
}

func (s *ServiceSuite) TestConcurrentApplicationsSameNumber() {
	const n = 50
	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.svc.ApplyForPassport(s.ctx, domain.Identity(fmt.Sprintf("0xh%d", i)), application("SAME"))
			switch {
			case err == nil:
				ok.Add(1)
			case dErrors.HasCode(err, dErrors.CodeDuplicateApplication):
				dup.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(1), ok.Load())
	s.Equal(int32(n-1), dup.Load())
}

func (s *ServiceSuite) TestConcurrentApplicationsSameHolder() {
	const n = 50
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.svc.ApplyForPassport(s.ctx, holder, application(fmt.Sprintf("N%d", i))); err == nil {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(1), ok.Load())

	list, err := s.svc.ListPassports(s.ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ServiceSuite) TestConcurrentApplicationsGetContiguousIDs() {
	const n = 40
	var wg sync.WaitGroup
	ids := make(chan domain.PassportID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.svc.ApplyForPassport(s.ctx, domain.Identity(fmt.Sprintf("0xh%d", i)), application(fmt.Sprintf("N%d", i)))
			s.NoError(err)
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.PassportID]bool)
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	for i := 1; i <= n; i++ {
		s.True(seen[domain.PassportID(i)], "missing id %d", i)
	}

	events := s.passportEvents()
	s.Len(events, n)
}

func (s *ServiceSuite) TestListPassportsClampsLimit() {
	for i := 0; i < 3; i++ {
		_, err := s.svc.ApplyForPassport(s.ctx, domain.Identity(fmt.Sprintf("0xh%d", i)), application(fmt.Sprintf("N%d", i)))
		s.Require().NoError(err)
	}
	list, err := s.svc.ListPassports(s.ctx, models.ListFilter{AfterID: 1, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(domain.PassportID(2), list[0].ID)

	list, err = s.svc.ListPassports(s.ctx, models.ListFilter{Limit: 10_000})
	s.Require().NoError(err)
	s.Len(list, 3)
}

func (s *ServiceSuite) TestRejectionsAreCounted() {
	_, err := s.svc.IssuePassport(s.ctx, "0xmallory", 1, 10)
	s.Require().Error(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejections.WithLabelValues(string(ledger.OpIssuePassport), string(dErrors.CodeUnauthorized))))
}
