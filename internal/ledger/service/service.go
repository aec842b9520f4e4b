// Package service records registry transitions in the append-only log and
// serves replays of it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"travelcred/internal/ledger/models"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/sentinel"
	"travelcred/pkg/requestcontext"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Store persists sealed transition entries.
type Store interface {
	Append(ctx context.Context, e models.Entry) (models.Entry, error)
	List(ctx context.Context, afterSeq uint64, limit int) ([]models.Entry, error)
	HashAt(ctx context.Context, seq uint64) ([]byte, error)
}

// Service is the transition log used by every registry.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// Record appends a transition for d. It must run inside the caller's
// registry transaction so the entry commits or rolls back with the state change.
func (s *Service) Record(ctx context.Context, d models.Draft) (models.Entry, error) {
	args := d.Arguments
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return models.Entry{}, fmt.Errorf("marshal transition arguments: %w", err)
	}

	entry, err := s.store.Append(ctx, models.Entry{
		EventID:         uuid.New(),
		Source:          d.Source,
		EntityID:        d.EntityID,
		Operation:       d.Operation,
		Arguments:       raw,
		ResultingStatus: d.ResultingStatus,
		Actor:           d.Actor,
		Client:          requestcontext.ClientDescription(ctx),
		RequestID:       requestcontext.RequestID(ctx),
		OccurredAt:      requestcontext.Now(ctx),
	})
	if err != nil {
		return models.Entry{}, fmt.Errorf("record transition: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries with seq > afterSeq in seq order.
func (s *Service) List(ctx context.Context, afterSeq uint64, limit int) ([]models.Entry, error) {
	limit = clampLimit(limit)
	entries, err := s.store.List(ctx, afterSeq, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transitions")
	}
	return entries, nil
}

// Verify checks the chain for a page returned by List.
func (s *Service) Verify(ctx context.Context, afterSeq uint64, entries []models.Entry) error {
	prev, err := s.store.HashAt(ctx, afterSeq)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "transition not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transition hash")
	}
	if err := models.VerifyChain(entries, prev); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transition log failed verification")
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
