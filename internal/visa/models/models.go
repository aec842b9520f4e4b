// Package models defines visa records and their lifecycle rules.
package models

import (
	"strconv"
	"strings"
	"time"

	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusExpired  Status = "Expired"
	StatusRevoked  Status = "Revoked"
)

var statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusExpired, StatusRevoked}

// ParseStatus accepts any letter case.
func ParseStatus(raw string) (Status, error) {
	for _, s := range statuses {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown visa status")
}

// Type is the visa category. Types are ordered; the ordinal is what the
// registry persists.
type Type string

const (
	TypeTourist  Type = "Tourist"
	TypeBusiness Type = "Business"
	TypeStudent  Type = "Student"
	TypeWork     Type = "Work"
	TypeTransit  Type = "Transit"
)

var types = []Type{TypeTourist, TypeBusiness, TypeStudent, TypeWork, TypeTransit}

// Ordinal returns the type's position, or -1 for an unknown type.
func (t Type) Ordinal() int {
	for i, v := range types {
		if v == t {
			return i
		}
	}
	return -1
}

// TypeFromOrdinal is the inverse of Ordinal.
func TypeFromOrdinal(n int) (Type, bool) {
	if n < 0 || n >= len(types) {
		return "", false
	}
	return types[n], true
}

// ParseType accepts a type name in any case or its ordinal.
func ParseType(raw string) (Type, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if t, ok := TypeFromOrdinal(n); ok {
			return t, nil
		}
		return "", dErrors.New(dErrors.CodeValidation, "visa_type is out of range")
	}
	for _, t := range types {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown visa_type")
}

const (
	MaxFieldLength    = 256
	MaxValidityMonths = 120
	// DaysPerMonth is the fixed month length used for visa validity.
	DaysPerMonth = 30
)

type Visa struct {
	ID                 domain.VisaID     `json:"id"`
	PassportID         domain.PassportID `json:"passport_id"`
	Applicant          domain.Identity   `json:"applicant"`
	DestinationCountry string            `json:"destination_country"`
	Type               Type              `json:"visa_type"`
	ApplicationDate    time.Time         `json:"application_date"`
	IssueDate          time.Time         `json:"issue_date"`
	ExpiryDate         time.Time         `json:"expiry_date"`
	Status             Status            `json:"status"`
	ApprovedBy         domain.Identity   `json:"approved_by,omitempty"`
	RejectionReason    string            `json:"rejection_reason,omitempty"`
	RevocationReason   string            `json:"revocation_reason,omitempty"`
}

// Application carries the applicant-supplied fields of a new visa.
type Application struct {
	PassportID         domain.PassportID
	DestinationCountry string
	Type               Type
}

func (a *Application) Normalize() {
	a.DestinationCountry = strings.TrimSpace(a.DestinationCountry)
}

func (a *Application) Validate() error {
	if a.PassportID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "passport_id is required")
	}
	if a.DestinationCountry == "" {
		return dErrors.New(dErrors.CodeValidation, "destination_country is required")
	}
	if len(a.DestinationCountry) > MaxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "destination_country is too long")
	}
	if a.Type.Ordinal() < 0 {
		return dErrors.New(dErrors.CodeValidation, "visa_type is out of range")
	}
	return nil
}

// ValidateReason checks a rejection or revocation reason.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(reason) > MaxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

func ValidateValidityMonths(months int) error {
	if months <= 0 || months > MaxValidityMonths {
		return dErrors.New(dErrors.CodeValidation, "validity_months must be between 1 and 120")
	}
	return nil
}

func NewVisa(id domain.VisaID, applicant domain.Identity, a Application, now time.Time) *Visa {
	return &Visa{
		ID:                 id,
		PassportID:         a.PassportID,
		Applicant:          applicant,
		DestinationCountry: a.DestinationCountry,
		Type:               a.Type,
		ApplicationDate:    now,
		Status:             StatusPending,
	}
}

// DerivedStatus reports Expired for an Approved visa whose expiry has passed.
func (v *Visa) DerivedStatus(now time.Time) Status {
	if v.Status == StatusApproved && !now.Before(v.ExpiryDate) {
		return StatusExpired
	}
	return v.Status
}

func (v *Visa) IsValid(now time.Time) bool {
	return v.DerivedStatus(now) == StatusApproved
}

func (v *Visa) Derived(now time.Time) *Visa {
	c := *v
	c.Status = v.DerivedStatus(now)
	return &c
}

func (v *Visa) requirePending(now time.Time, action string) error {
	if s := v.DerivedStatus(now); s != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "visa is "+string(s)+", only Pending visas can be "+action)
	}
	return nil
}

func (v *Visa) CanApprove(now time.Time) error { return v.requirePending(now, "approved") }

func (v *Visa) CanReject(now time.Time) error { return v.requirePending(now, "rejected") }

func (v *Visa) CanRevoke(now time.Time) error {
	switch s := v.DerivedStatus(now); s {
	case StatusPending, StatusApproved:
		return nil
	default:
		return dErrors.New(dErrors.CodeInvalidState, "visa is already "+string(s))
	}
}

// ApplyApprove grants the visa for validityMonths fixed 30-day months.
func (v *Visa) ApplyApprove(now time.Time, validityMonths int, officer domain.Identity) {
	v.Status = StatusApproved
	v.IssueDate = now
	v.ExpiryDate = now.Add(time.Duration(validityMonths*DaysPerMonth) * 24 * time.Hour)
	v.ApprovedBy = officer
}

func (v *Visa) ApplyReject(reason string) {
	v.Status = StatusRejected
	v.RejectionReason = reason
}

func (v *Visa) ApplyRevoke(reason string) {
	v.Status = StatusRevoked
	v.RevocationReason = reason
}

// ListFilter selects visas for officer listings. Statuses match derived
// status; an empty slice matches every status.
type ListFilter struct {
	Statuses []Status
	AfterID  domain.VisaID
	Limit    int
	Now      time.Time
}

func (f ListFilter) Matches(v *Visa) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	s := v.DerivedStatus(f.Now)
	for _, want := range f.Statuses {
		if s == want {
			return true
		}
	}
	return false
}
