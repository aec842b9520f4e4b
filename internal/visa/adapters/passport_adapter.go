package adapters

import (
	"context"

	passportService "travelcred/internal/passport/service"
	"travelcred/internal/visa/ports"
	"travelcred/pkg/domain"
)

// PassportAdapter implements ports.PassportPort by calling the passport
// service in process. Both methods are lock-free reads.
type PassportAdapter struct {
	passports *passportService.Service
}

func NewPassportAdapter(passports *passportService.Service) ports.PassportPort {
	return &PassportAdapter{passports: passports}
}

func (a *PassportAdapter) GetPassport(ctx context.Context, id domain.PassportID) (*ports.PassportRecord, error) {
	p, err := a.passports.GetPassport(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.PassportRecord{ID: p.ID, Holder: p.Holder, Status: string(p.Status)}, nil
}

func (a *PassportAdapter) VerifyPassport(ctx context.Context, id domain.PassportID) (bool, error) {
	return a.passports.VerifyPassport(ctx, id)
}
