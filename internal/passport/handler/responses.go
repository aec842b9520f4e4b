package handler

import (
	"time"

	"travelcred/internal/passport/models"
	"travelcred/pkg/domain"
)

type PassportResponse struct {
	ID               domain.PassportID `json:"id"`
	Holder           domain.Identity   `json:"holder"`
	FullName         string            `json:"full_name"`
	DateOfBirth      string            `json:"date_of_birth"`
	Nationality      string            `json:"nationality"`
	PassportNumber   string            `json:"passport_number"`
	IssueDate        *time.Time        `json:"issue_date"`
	ExpiryDate       *time.Time        `json:"expiry_date"`
	Status           models.Status     `json:"status"`
	DocumentPointer  string            `json:"document_pointer"`
	RevocationReason string            `json:"revocation_reason,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func FromPassport(p *models.Passport) PassportResponse {
	return PassportResponse{
		ID:               p.ID,
		Holder:           p.Holder,
		FullName:         p.FullName,
		DateOfBirth:      p.DateOfBirth,
		Nationality:      p.Nationality,
		PassportNumber:   p.PassportNumber,
		IssueDate:        optionalTime(p.IssueDate),
		ExpiryDate:       optionalTime(p.ExpiryDate),
		Status:           p.Status,
		DocumentPointer:  p.DocumentPointer,
		RevocationReason: p.RevocationReason,
	}
}

type idResponse struct {
	ID domain.PassportID `json:"id"`
}

type verifyResponse struct {
	ID    domain.PassportID `json:"id"`
	Valid bool              `json:"valid"`
}

type listResponse struct {
	Passports []PassportResponse `json:"passports"`
	NextAfter domain.PassportID  `json:"next_after,omitempty"`
}
