package ports

//go:generate mockgen -source=passport.go -destination=mocks/mocks.go -package=mocks PassportPort

import (
	"context"

	"travelcred/pkg/domain"
)

// PassportPort is the visa registry's read-only view of the passport
// registry. Implementations must not take the passport registry lock.
type PassportPort interface {
	// GetPassport returns the referenced passport with its derived status,
	// or a not_found domain error.
	GetPassport(ctx context.Context, id domain.PassportID) (*PassportRecord, error)

	// VerifyPassport is true iff the passport exists, is Active and unexpired.
	VerifyPassport(ctx context.Context, id domain.PassportID) (bool, error)
}

// PassportRecord is the part of a passport the visa registry needs.
type PassportRecord struct {
	ID     domain.PassportID
	Holder domain.Identity
	Status string
}
