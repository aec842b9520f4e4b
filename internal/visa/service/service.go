// Package service implements the visa registry. Applications are gated on
// the referenced passport being valid at the moment of the call; after that
// a visa's lifecycle is independent of its passport.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ledger "travelcred/internal/ledger/models"
	"travelcred/internal/notifier"
	visametrics "travelcred/internal/visa/metrics"
	"travelcred/internal/visa/models"
	"travelcred/internal/visa/ports"
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
	NextID(ctx context.Context) (domain.VisaID, error)
	Create(ctx context.Context, v *models.Visa) error
	FindByID(ctx context.Context, id domain.VisaID) (*models.Visa, error)
	IDsByApplicant(ctx context.Context, applicant domain.Identity) ([]domain.VisaID, error)
	Execute(ctx context.Context, id domain.VisaID, validate func(*models.Visa) error, mutate func(*models.Visa)) (*models.Visa, error)
	List(ctx context.Context, f models.ListFilter) ([]*models.Visa, error)
}

type Authority interface {
	RequireOfficer(ctx context.Context, kind domain.RegistryKind, caller domain.Identity) error
}

type Recorder interface {
	Record(ctx context.Context, d ledger.Draft) (ledger.Entry, error)
}

type Publisher interface {
	Publish(e notifier.Event)
}

// Service is the visa registry. Every mutation runs inside tx, which
// serializes visa mutations; passport state is only read.
type Service struct {
	visas              Store
	passports          ports.PassportPort
	authority          Authority
	ledger             Recorder
	tx                 txctx.Runner
	events             Publisher
	audit              *audit.Emitter
	metrics            *visametrics.Metrics
	tracer             trace.Tracer
	requireHolderMatch bool
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

func WithMetrics(m *visametrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithHolderMatch makes ApplyForVisa refuse applicants other than the
// passport holder.
func WithHolderMatch(required bool) Option {
	return func(s *Service) { s.requireHolderMatch = required }
}

func New(visas Store, passports ports.PassportPort, authority Authority, recorder Recorder, opts ...Option) (*Service, error) {
	if visas == nil {
		return nil, errors.New("visa store is required")
	}
	if passports == nil {
		return nil, errors.New("passport port is required")
	}
	if authority == nil {
		return nil, errors.New("authority is required")
	}
	if recorder == nil {
		return nil, errors.New("transition recorder is required")
	}
	s := &Service{
		visas:     visas,
		passports: passports,
		authority: authority,
		ledger:    recorder,
		tracer:    otel.Tracer("travelcred/visa"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = txctx.NewMemoryRunner()
	}
	return s, nil
}

// ApplyForVisa records a Pending visa for applicant against an active passport.
func (s *Service) ApplyForVisa(ctx context.Context, applicant domain.Identity, app models.Application) (id domain.VisaID, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpApplyForVisa), attribute.Int64("passport.id", int64(app.PassportID)))
	defer func() { done(err) }()

	if applicant.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "applicant is required")
	}
	app.Normalize()
	if err := app.Validate(); err != nil {
		return 0, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkPassport(ctx, applicant, app.PassportID); err != nil {
			return err
		}

		next, err := s.visas.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate visa id")
		}
		v := models.NewVisa(next, applicant, app, requestcontext.Now(ctx))
		if err := s.visas.Create(ctx, v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store visa")
		}

		id = v.ID
		return s.record(ctx, v, applicant, ledger.OpApplyForVisa, notifier.VisaApplied, map[string]any{
			"applicant":           string(applicant),
			"passport_id":         uint64(app.PassportID),
			"destination_country": app.DestinationCountry,
			"visa_type":           string(app.Type),
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// checkPassport enforces the referential gate: the passport exists, is
// valid now, and belongs to the applicant when holder match is required.
func (s *Service) checkPassport(ctx context.Context, applicant domain.Identity, id domain.PassportID) error {
	p, err := s.passports.GetPassport(ctx, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.metrics.IncPassportGate("missing")
			return dErrors.New(dErrors.CodeNotFound, "passport not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load passport")
	}
	if s.requireHolderMatch && p.Holder != applicant {
		return dErrors.New(dErrors.CodeUnauthorized, "applicant is not the passport holder")
	}
	valid, err := s.passports.VerifyPassport(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify passport")
	}
	if !valid {
		s.metrics.IncPassportGate("inactive")
		return dErrors.New(dErrors.CodeInvalidState, "passport not active")
	}
	s.metrics.IncPassportGate("active")
	return nil
}

// ApproveVisa grants a Pending visa for validityMonths 30-day months.
func (s *Service) ApproveVisa(ctx context.Context, caller domain.Identity, id domain.VisaID, validityMonths int) (v *models.Visa, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpApproveVisa), attribute.Int64("visa.id", int64(id)))
	defer func() { done(err) }()

	if err := s.authority.RequireOfficer(ctx, domain.RegistryVisa, caller); err != nil {
		return nil, err
	}
	if err := models.ValidateValidityMonths(validityMonths); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		updated, err := s.visas.Execute(ctx, id,
			func(v *models.Visa) error { return v.CanApprove(now) },
			func(v *models.Visa) { v.ApplyApprove(now, validityMonths, caller) },
		)
		if err != nil {
			return translate(err)
		}
		v = updated
		return s.record(ctx, updated, caller, ledger.OpApproveVisa, notifier.VisaApproved, map[string]any{
			"validity_months": validityMonths,
			"issue_date":      updated.IssueDate,
			"expiry_date":     updated.ExpiryDate,
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RejectVisa moves a Pending visa to Rejected.
func (s *Service) RejectVisa(ctx context.Context, caller domain.Identity, id domain.VisaID, reason string) (v *models.Visa, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpRejectVisa), attribute.Int64("visa.id", int64(id)))
	defer func() { done(err) }()

	if err := s.authority.RequireOfficer(ctx, domain.RegistryVisa, caller); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if err := models.ValidateReason(reason); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		updated, err := s.visas.Execute(ctx, id,
			func(v *models.Visa) error { return v.CanReject(now) },
			func(v *models.Visa) { v.ApplyReject(reason) },
		)
		if err != nil {
			return translate(err)
		}
		v = updated
		return s.record(ctx, updated, caller, ledger.OpRejectVisa, notifier.VisaRejected, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RevokeVisa moves a Pending or unexpired Approved visa to Revoked.
func (s *Service) RevokeVisa(ctx context.Context, caller domain.Identity, id domain.VisaID, reason string) (v *models.Visa, err error) {
	ctx, done := s.begin(ctx, string(ledger.OpRevokeVisa), attribute.Int64("visa.id", int64(id)))
	defer func() { done(err) }()

	if err := s.authority.RequireOfficer(ctx, domain.RegistryVisa, caller); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if err := models.ValidateReason(reason); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		updated, err := s.visas.Execute(ctx, id,
			func(v *models.Visa) error { return v.CanRevoke(now) },
			func(v *models.Visa) { v.ApplyRevoke(reason) },
		)
		if err != nil {
			return translate(err)
		}
		v = updated
		return s.record(ctx, updated, caller, ledger.OpRevokeVisa, notifier.VisaRevoked, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// VerifyVisa is true iff the visa exists, is Approved and has not expired.
func (s *Service) VerifyVisa(ctx context.Context, id domain.VisaID) (bool, error) {
	v, err := s.visas.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visa")
	}
	return v.IsValid(requestcontext.Now(ctx)), nil
}

// GetVisa returns the record with its derived status.
func (s *Service) GetVisa(ctx context.Context, id domain.VisaID) (*models.Visa, error) {
	v, err := s.visas.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return v.Derived(requestcontext.Now(ctx)), nil
}

// GetApplicantVisas returns the applicant's visa ids in application order.
func (s *Service) GetApplicantVisas(ctx context.Context, applicant domain.Identity) ([]domain.VisaID, error) {
	ids, err := s.visas.IDsByApplicant(ctx, applicant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant visas")
	}
	return ids, nil
}

func (s *Service) ListVisas(ctx context.Context, f models.ListFilter) ([]*models.Visa, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	f.Now = requestcontext.Now(ctx)
	list, err := s.visas.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visas")
	}
	for i, v := range list {
		list[i] = v.Derived(f.Now)
	}
	return list, nil
}

func (s *Service) record(ctx context.Context, v *models.Visa, actor domain.Identity, op ledger.Operation, t notifier.Type, args map[string]any) error {
	entry, err := s.ledger.Record(ctx, ledger.Draft{
		Source:          ledger.SourceVisa,
		EntityID:        uint64(v.ID),
		Operation:       op,
		Arguments:       args,
		ResultingStatus: string(v.Status),
		Actor:           actor,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record visa transition")
	}
	txctx.OnCommit(ctx, func() {
		if s.events != nil {
			s.events.Publish(notifier.FromEntry(t, entry))
		}
		s.metrics.IncTransition(string(op))
		s.audit.Emit(ctx, string(t),
			"actor", actor,
			"visa_id", uint64(v.ID),
			"passport_id", uint64(v.PassportID),
			"status", string(v.Status),
			"seq", entry.Seq,
		)
	})
	return nil
}

func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "visa."+op, trace.WithAttributes(attrs...))
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
		return dErrors.New(dErrors.CodeNotFound, "visa not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "visa store failure")
}
