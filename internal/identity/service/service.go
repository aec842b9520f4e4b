// Package service implements the identity authority: one fixed
// administrator and the officer sets of the passport and visa registries.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"travelcred/internal/identity/models"
	ledger "travelcred/internal/ledger/models"
	"travelcred/internal/notifier"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/audit"
	txctx "travelcred/pkg/platform/tx"
	"travelcred/pkg/requestcontext"
)

type Store interface {
	Add(ctx context.Context, o models.Officer) (bool, error)
	Remove(ctx context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error)
	Exists(ctx context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error)
	Count(ctx context.Context, kind domain.RegistryKind) (int, error)
	List(ctx context.Context, kind domain.RegistryKind) ([]models.Officer, error)
}

// Recorder appends to the transition log inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, d ledger.Draft) (ledger.Entry, error)
}

type Publisher interface {
	Publish(e notifier.Event)
}

// Service answers role queries for the registries and manages officer sets.
type Service struct {
	admin    domain.Identity
	officers Store
	ledger   Recorder
	tx       txctx.Runner
	events   Publisher
	audit    *audit.Emitter
	tracer   trace.Tracer
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

// New fixes the administrator for the lifetime of the service.
func New(admin domain.Identity, officers Store, recorder Recorder, opts ...Option) (*Service, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "administrator identity is required")
	}
	s := &Service{
		admin:    admin,
		officers: officers,
		ledger:   recorder,
		tracer:   otel.Tracer("travelcred/identity"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = txctx.NewMemoryRunner()
	}
	return s, nil
}

// Administrator returns the fixed administrator identity.
func (s *Service) Administrator() domain.Identity {
	return s.admin
}

// Bootstrap seeds the administrator into every officer set that is still
// empty, so a fresh deployment can issue and approve immediately.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, kind := range []domain.RegistryKind{domain.RegistryPassport, domain.RegistryVisa} {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			n, err := s.officers.Count(ctx, kind)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count officers")
			}
			if n > 0 {
				return nil
			}
			_, err = s.add(ctx, s.admin, kind, s.admin)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// IsAuthorizedOfficer reports whether identity is in kind's officer set.
func (s *Service) IsAuthorizedOfficer(ctx context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error) {
	if !kind.IsValid() {
		return false, dErrors.New(dErrors.CodeValidation, "unknown registry kind")
	}
	if identity.IsZero() {
		return false, nil
	}
	ok, err := s.officers.Exists(ctx, kind, identity)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check officer")
	}
	return ok, nil
}

// RequireOfficer is the guard registries call before officer-only transitions.
func (s *Service) RequireOfficer(ctx context.Context, kind domain.RegistryKind, caller domain.Identity) error {
	ok, err := s.IsAuthorizedOfficer(ctx, kind, caller)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not a "+string(kind)+" officer")
	}
	return nil
}

func (s *Service) requireAdministrator(caller domain.Identity) error {
	if caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the administrator can manage officers")
	}
	return nil
}

// AddOfficer grants identity the officer role for kind. Adding an existing
// officer succeeds without recording a transition.
func (s *Service) AddOfficer(ctx context.Context, caller domain.Identity, kind domain.RegistryKind, identity domain.Identity) error {
	ctx, span := s.tracer.Start(ctx, "identity.AddOfficer",
		trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	if err := s.requireAdministrator(caller); err != nil {
		return err
	}
	if err := validateAssignment(kind, identity); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.add(ctx, caller, kind, identity)
		return err
	})
}

// RemoveOfficer revokes the officer role. Removing a non-officer succeeds
// without recording a transition.
func (s *Service) RemoveOfficer(ctx context.Context, caller domain.Identity, kind domain.RegistryKind, identity domain.Identity) error {
	ctx, span := s.tracer.Start(ctx, "identity.RemoveOfficer",
		trace.WithAttributes(attribute.String("kind", string(kind))))
	defer span.End()

	if err := s.requireAdministrator(caller); err != nil {
		return err
	}
	if err := validateAssignment(kind, identity); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		removed, err := s.officers.Remove(ctx, kind, identity)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove officer")
		}
		if !removed {
			return nil
		}
		return s.record(ctx, caller, ledger.OpRemoveOfficer, notifier.OfficerRemoved, kind, identity, models.StatusRemoved)
	})
}

// ListOfficers returns kind's officer set ordered by identity.
func (s *Service) ListOfficers(ctx context.Context, kind domain.RegistryKind) ([]models.Officer, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown registry kind")
	}
	list, err := s.officers.List(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list officers")
	}
	if list == nil {
		list = []models.Officer{}
	}
	return list, nil
}

func (s *Service) add(ctx context.Context, actor domain.Identity, kind domain.RegistryKind, identity domain.Identity) (bool, error) {
	added, err := s.officers.Add(ctx, models.Officer{
		Kind:     kind,
		Identity: identity,
		AddedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add officer")
	}
	if !added {
		return false, nil
	}
	return true, s.record(ctx, actor, ledger.OpAddOfficer, notifier.OfficerAdded, kind, identity, models.StatusAuthorized)
}

func (s *Service) record(ctx context.Context, actor domain.Identity, op ledger.Operation, t notifier.Type,
	kind domain.RegistryKind, identity domain.Identity, status string) error {
	entry, err := s.ledger.Record(ctx, ledger.Draft{
		Source:    ledger.SourceOfficers,
		Operation: op,
		Arguments: map[string]any{
			"kind":     string(kind),
			"identity": string(identity),
		},
		ResultingStatus: status,
		Actor:           actor,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record officer change")
	}
	txctx.OnCommit(ctx, func() {
		if s.events != nil {
			s.events.Publish(notifier.FromEntry(t, entry))
		}
		s.audit.Emit(ctx, string(t),
			"actor", actor,
			"kind", string(kind),
			"identity", identity,
			"seq", entry.Seq,
		)
	})
	return nil
}

func validateAssignment(kind domain.RegistryKind, identity domain.Identity) error {
	if !kind.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown registry kind")
	}
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "officer identity is required")
	}
	return nil
}
