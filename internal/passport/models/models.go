// Package models defines passport records and their lifecycle rules.
package models

import (
	"strings"
	"time"

	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
)

type Status string

const (
	StatusPending Status = "Pending"
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
	StatusRevoked Status = "Revoked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

// ParseStatus accepts any letter case.
func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusPending, StatusActive, StatusExpired, StatusRevoked} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown passport status")
}

const (
	MaxFieldLength   = 256
	MaxValidityYears = 50
)

// Passport is the stored record. Status holds the last written status;
// Expired is never stored and is derived from ExpiryDate by Derived.
type Passport struct {
	ID               domain.PassportID `json:"id"`
	Holder           domain.Identity   `json:"holder"`
	FullName         string            `json:"full_name"`
	DateOfBirth      string            `json:"date_of_birth"`
	Nationality      string            `json:"nationality"`
	PassportNumber   string            `json:"passport_number"`
	IssueDate        time.Time         `json:"issue_date"`
	ExpiryDate       time.Time         `json:"expiry_date"`
	Status           Status            `json:"status"`
	DocumentPointer  string            `json:"document_pointer"`
	RevocationReason string            `json:"revocation_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Application carries the holder-supplied fields of a new passport.
type Application struct {
	FullName        string
	DateOfBirth     string
	Nationality     string
	PassportNumber  string
	DocumentPointer string
}

// Normalize trims every field.
func (a *Application) Normalize() {
	a.FullName = strings.TrimSpace(a.FullName)
	a.DateOfBirth = strings.TrimSpace(a.DateOfBirth)
	a.Nationality = strings.TrimSpace(a.Nationality)
	a.PassportNumber = strings.TrimSpace(a.PassportNumber)
	a.DocumentPointer = strings.TrimSpace(a.DocumentPointer)
}

func (a *Application) Validate() error {
	required := []struct{ name, value string }{
		{"full_name", a.FullName},
		{"date_of_birth", a.DateOfBirth},
		{"nationality", a.Nationality},
		{"passport_number", a.PassportNumber},
	}
	for _, f := range required {
		if f.value == "" {
			return dErrors.New(dErrors.CodeValidation, f.name+" is required")
		}
		if len(f.value) > MaxFieldLength {
			return dErrors.New(dErrors.CodeValidation, f.name+" is too long")
		}
	}
	if len(a.DocumentPointer) > MaxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "document_pointer is too long")
	}
	return nil
}

// NewPassport builds a Pending record with zero issue and expiry dates.
func NewPassport(id domain.PassportID, holder domain.Identity, a Application, now time.Time) *Passport {
	return &Passport{
		ID:              id,
		Holder:          holder,
		FullName:        a.FullName,
		DateOfBirth:     a.DateOfBirth,
		Nationality:     a.Nationality,
		PassportNumber:  a.PassportNumber,
		DocumentPointer: a.DocumentPointer,
		Status:          StatusPending,
		CreatedAt:       now,
	}
}

// DerivedStatus reports Expired for an Active record whose expiry has passed.
func (p *Passport) DerivedStatus(now time.Time) Status {
	if p.Status == StatusActive && !now.Before(p.ExpiryDate) {
		return StatusExpired
	}
	return p.Status
}

// IsValid is the verification predicate: Active and not yet expired.
func (p *Passport) IsValid(now time.Time) bool {
	return p.DerivedStatus(now) == StatusActive
}

// IsOpen reports whether the record still blocks a new application by its holder.
func (p *Passport) IsOpen(now time.Time) bool {
	switch p.DerivedStatus(now) {
	case StatusPending, StatusActive:
		return true
	}
	return false
}

// Derived returns a copy carrying the derived status.
func (p *Passport) Derived(now time.Time) *Passport {
	c := *p
	c.Status = p.DerivedStatus(now)
	return &c
}

func (p *Passport) CanIssue(now time.Time) error {
	if s := p.DerivedStatus(now); s != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "passport is "+string(s)+", only Pending passports can be issued")
	}
	return nil
}

func (p *Passport) CanRevoke(now time.Time) error {
	switch s := p.DerivedStatus(now); s {
	case StatusPending, StatusActive:
		return nil
	default:
		return dErrors.New(dErrors.CodeInvalidState, "passport is already "+string(s))
	}
}

// ApplyIssue activates the passport for whole calendar years from now.
func (p *Passport) ApplyIssue(now time.Time, validityYears int) {
	p.Status = StatusActive
	p.IssueDate = now
	p.ExpiryDate = now.AddDate(validityYears, 0, 0)
}

func (p *Passport) ApplyRevoke(reason string) {
	p.Status = StatusRevoked
	p.RevocationReason = reason
}

// ListFilter selects passports for officer listings. Statuses match derived
// status; an empty slice matches every status.
type ListFilter struct {
	Statuses []Status
	AfterID  domain.PassportID
	Limit    int
	Now      time.Time
}

// Matches applies the status part of the filter in memory.
func (f ListFilter) Matches(p *Passport) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	s := p.DerivedStatus(f.Now)
	for _, want := range f.Statuses {
		if s == want {
			return true
		}
	}
	return false
}
