package handler

import (
	"time"

	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
)

type VisaResponse struct {
	ID                 domain.VisaID     `json:"id"`
	PassportID         domain.PassportID `json:"passport_id"`
	Applicant          domain.Identity   `json:"applicant"`
	DestinationCountry string            `json:"destination_country"`
	VisaType           models.Type       `json:"visa_type"`
	ApplicationDate    time.Time         `json:"application_date"`
	IssueDate          *time.Time        `json:"issue_date"`
	ExpiryDate         *time.Time        `json:"expiry_date"`
	Status             models.Status     `json:"status"`
	ApprovedBy         domain.Identity   `json:"approved_by,omitempty"`
	RejectionReason    string            `json:"rejection_reason,omitempty"`
	RevocationReason   string            `json:"revocation_reason,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func FromVisa(v *models.Visa) VisaResponse {
	return VisaResponse{
		ID:                 v.ID,
		PassportID:         v.PassportID,
		Applicant:          v.Applicant,
		DestinationCountry: v.DestinationCountry,
		VisaType:           v.Type,
		ApplicationDate:    v.ApplicationDate,
		IssueDate:          optionalTime(v.IssueDate),
		ExpiryDate:         optionalTime(v.ExpiryDate),
		Status:             v.Status,
		ApprovedBy:         v.ApprovedBy,
		RejectionReason:    v.RejectionReason,
		RevocationReason:   v.RevocationReason,
	}
}

type idResponse struct {
	ID domain.VisaID `json:"id"`
}

type idsResponse struct {
	IDs []domain.VisaID `json:"ids"`
}

type verifyResponse struct {
	ID    domain.VisaID `json:"id"`
	Valid bool          `json:"valid"`
}

type listResponse struct {
	Visas     []VisaResponse `json:"visas"`
	NextAfter domain.VisaID  `json:"next_after,omitempty"`
}
