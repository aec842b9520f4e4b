// Package service implements the passport registry: applications, officer
// issuance and revocation, and validity checks with derived expiry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ledger "travelcred/internal/ledger/models"
	"travelcred/internal/notifier"
	passportmetrics "travelcred/internal/passport/metrics"
	"travelcred/internal/passport/models"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/audit"
	"travelcred/pkg/platform/sentinel"
	txctx "travelcred/pkg/platform/tx"
	"travelcred/pkg/requestcontext"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Store interface {
	NextID(ctx context.Context) (domain.PassportID, error)
	Create(ctx context.Context, p *models.Passport) error
	FindByID(ctx context.Context, id domain.PassportID) (*models.Passport, error)
	FindByHolder(ctx context.Context, holder domain.Identity) ([]*models.Passport, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Execute(ctx context.Context, id domain.PassportID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error)
	List(ctx context.Context, f models.ListFilter) ([]*models.Passport, error)
}

// Authority guards officer-only transitions.
type Authority interface {
	RequireOfficer(ctx context.Context, kind domain.RegistryKind, caller domain.Identity) error
}

type Recorder interface {
	Record(ctx context.Context, d ledger.Draft) (ledger.Entry, error)
}

type Publisher interface {
	Publish(e notifier.Event)
}

// Service is the passport registry. Every mutation runs inside tx, which
// serializes passport mutations for the full validate-then-write span.
type Service struct {
	passports Store
	authority Authority
	ledger    Recorder
	tx        txctx.Runner
	events    Publisher
	audit     *audit.Emitter
	metrics   *passportmetrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithTx(r txctx.Runner) Option {
	return func(s *Service) { s.tx = r }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.audit = audit.NewEmitter(logger) }
}

func WithMetrics(m *passportmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(passports Store, authority Authority, recorder Recorder, opts ...Option) *Service {
	s := &Service{
		passports: passports,
		authority: authority,
		ledger:    recorder,
		tracer:    otel.Tracer("travelcred/passport"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = txctx.NewMemoryRunner()
	}
	return s
}

// ApplyForPassport records a Pending passport for holder.
func (s *Service) ApplyForPassport(ctx context.Context, holder domain.Identity, app models.Application) (id domain.PassportID, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpApplyForPassport))
	defer func() { done(err) }()

	if holder.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "holder is required")
	}
	app.Normalize()
	if err := app.Validate(); err != nil {
		return 0, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)

		existing, err := s.passports.FindByHolder(ctx, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load holder passports")
		}
		for _, p := range existing {
			if p.IsOpen(now) {
				return dErrors.New(dErrors.CodeDuplicateApplication, "holder already has a pending or active passport")
			}
		}

		taken, err := s.passports.NumberExists(ctx, app.PassportNumber)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check passport number")
		}
		if taken {
			return dErrors.New(dErrors.CodeDuplicateApplication, "passport number is already registered")
		}

		next, err := s.passports.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate passport id")
		}
		p := models.NewPassport(next, holder, app, now)
		if err := s.passports.Create(ctx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateApplication, "passport number is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store passport")
		}

		id = p.ID
		return s.record(ctx, p, holder, ledger.OpApplyForPassport, notifier.PassportApplied, map[string]any{
			"holder":           string(holder),
			"full_name":        app.FullName,
			"date_of_birth":    app.DateOfBirth,
			"nationality":      app.Nationality,
			"passport_number":  app.PassportNumber,
			"document_pointer": app.DocumentPointer,
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// IssuePassport activates a Pending passport for validityYears calendar years.
func (s *Service) IssuePassport(ctx context.Context, caller domain.Identity, id domain.PassportID, validityYears int) (p *models.Passport, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpIssuePassport), attribute.Int64("passport.id", int64(id)))
	defer func() { done(err) }()

	if err := s.authority.RequireOfficer(ctx, domain.RegistryPassport, caller); err != nil {
		return nil, err
	}
	if validityYears <= 0 || validityYears > models.MaxValidityYears {
		return nil, dErrors.New(dErrors.CodeValidation, "validity_years must be between 1 and 50")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		updated, err := s.passports.Execute(ctx, id,
			func(p *models.Passport) error { return p.CanIssue(now) },
			func(p *models.Passport) { p.ApplyIssue(now, validityYears) },
		)
		if err != nil {
			return translate(err)
		}
		p = updated
		return s.record(ctx, updated, caller, ledger.OpIssuePassport, notifier.PassportIssued, map[string]any{
			"validity_years": validityYears,
			"issue_date":     updated.IssueDate,
			"expiry_date":    updated.ExpiryDate,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RevokePassport moves a Pending or Active passport to Revoked.
func (s *Service) RevokePassport(ctx context.Context, caller domain.Identity, id domain.PassportID, reason string) (p *models.Passport, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpRevokePassport), attribute.Int64("passport.id", int64(id)))
	defer func() { done(err) }()

	if err := s.authority.RequireOfficer(ctx, domain.RegistryPassport, caller); err != nil {
		return nil, err
	}
	if len(reason) > models.MaxFieldLength {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is too long")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		updated, err := s.passports.Execute(ctx, id,
			func(p *models.Passport) error { return p.CanRevoke(now) },
			func(p *models.Passport) { p.ApplyRevoke(reason) },
		)
		if err != nil {
			return translate(err)
		}
		p = updated
		return s.record(ctx, updated, caller, ledger.OpRevokePassport, notifier.PassportRevoked, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// VerifyPassport is true iff the passport exists, is Active and has not expired.
func (s *Service) VerifyPassport(ctx context.Context, id domain.PassportID) (bool, error) {
	p, err := s.passports.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load passport")
	}
	return p.IsValid(requestcontext.Now(ctx)), nil
}

// GetPassport returns the record with its derived status.
func (s *Service) GetPassport(ctx context.Context, id domain.PassportID) (*models.Passport, error) {
	p, err := s.passports.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return p.Derived(requestcontext.Now(ctx)), nil
}

// GetPassportByHolder returns the holder's most recent passport id, or 0.
func (s *Service) GetPassportByHolder(ctx context.Context, holder domain.Identity) (domain.PassportID, error) {
	list, err := s.passports.FindByHolder(ctx, holder)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load holder passports")
	}
	if len(list) == 0 {
		return 0, nil
	}
	return list[len(list)-1].ID, nil
}

// ListPassports pages through passports in id order with derived status applied.
func (s *Service) ListPassports(ctx context.Context, f models.ListFilter) ([]*models.Passport, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	f.Now = requestcontext.Now(ctx)
	list, err := s.passports.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list passports")
	}
	for i, p := range list {
		list[i] = p.Derived(f.Now)
	}
	return list, nil
}

func (s *Service) record(ctx context.Context, p *models.Passport, actor domain.Identity, op ledger.Operation, t notifier.Type, args map[string]any) error {
	entry, err := s.ledger.Record(ctx, ledger.Draft{
		Source:          ledger.SourcePassport,
		EntityID:        uint64(p.ID),
		Operation:       op,
		Arguments:       args,
		ResultingStatus: string(p.Status),
		Actor:           actor,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record passport transition")
	}
	txctx.OnCommit(ctx, func() {
		if s.events != nil {
			s.events.Publish(notifier.FromEntry(t, entry))
		}
		s.metrics.IncTransition(string(op))
		s.audit.Emit(ctx, string(t),
			"actor", actor,
			"passport_id", uint64(p.ID),
			"status", string(p.Status),
			"seq", entry.Seq,
		)
	})
	return nil
}

// begin opens a span and returns a completion func recording the outcome.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "passport."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		s.metrics.ObserveOperation(op, start)
		if err != nil {
			code := dErrors.CodeOf(err)
			s.metrics.IncRejection(op, string(code))
			span.SetStatus(codes.Error, string(code))
		}
		span.End()
	}
}

func translate(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "passport not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "passport store failure")
}
