package handler

import (
	"encoding/json"
	"strings"

	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	platformstrings "travelcred/pkg/platform/strings"
)

// ApplyRequest is the body of POST /visas. visa_type is a type name or its
// ordinal, as a JSON string or number.
type ApplyRequest struct {
	PassportID         domain.PassportID `json:"passport_id"`
	DestinationCountry string            `json:"destination_country"`
	VisaType           json.RawMessage   `json:"visa_type"`

	app models.Application
}

func (r *ApplyRequest) Validate() error {
	raw := strings.Trim(strings.TrimSpace(string(r.VisaType)), `"`)
	if raw == "" {
		return dErrors.New(dErrors.CodeValidation, "visa_type is required")
	}
	t, err := models.ParseType(raw)
	if err != nil {
		return err
	}
	r.app = models.Application{
		PassportID:         r.PassportID,
		DestinationCountry: r.DestinationCountry,
		Type:               t,
	}
	r.app.Normalize()
	return r.app.Validate()
}

type ApproveRequest struct {
	ValidityMonths int `json:"validity_months"`
}

func (r *ApproveRequest) Validate() error {
	return models.ValidateValidityMonths(r.ValidityMonths)
}

// ReasonRequest is the body of reject and revoke.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return models.ValidateReason(r.Reason)
}

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
