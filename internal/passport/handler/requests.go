package handler

import (
	"strings"

	"travelcred/internal/passport/models"
	dErrors "travelcred/pkg/domain-errors"
	platformstrings "travelcred/pkg/platform/strings"
)

// ApplyRequest is the body of POST /passports. The holder is the caller.
type ApplyRequest struct {
	FullName        string `json:"full_name"`
	DateOfBirth     string `json:"date_of_birth"`
	Nationality     string `json:"nationality"`
	PassportNumber  string `json:"passport_number"`
	DocumentPointer string `json:"document_pointer"`

	app models.Application
}

// Validate implements httputil.Validatable.
func (r *ApplyRequest) Validate() error {
	r.app = models.Application{
		FullName:        r.FullName,
		DateOfBirth:     r.DateOfBirth,
		Nationality:     r.Nationality,
		PassportNumber:  r.PassportNumber,
		DocumentPointer: r.DocumentPointer,
	}
	r.app.Normalize()
	return r.app.Validate()
}

type IssueRequest struct {
	ValidityYears int `json:"validity_years"`
}

func (r *IssueRequest) Validate() error {
	if r.ValidityYears <= 0 || r.ValidityYears > models.MaxValidityYears {
		return dErrors.New(dErrors.CodeValidation, "validity_years must be between 1 and 50")
	}
	return nil
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > models.MaxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// parseStatuses reads a comma-separated status filter.
func parseStatuses(raw string) ([]models.Status, error) {
	var out []models.Status
	for _, part := range platformstrings.SplitList(raw) {
		s, err := models.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
