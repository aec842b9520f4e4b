// Package registry holds the passport and visa lifecycle steps.
package registry

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cucumber/godog"

	"travelcred/e2e/steps/common"
)

var sequence atomic.Uint64

// unique returns a suffix distinct across scenarios and runs against the
// same server.
func unique() string {
	return fmt.Sprintf("%d%03d", time.Now().UnixNano(), sequence.Add(1)%1000)
}

type steps struct {
	w *common.World
}

// RegisterSteps registers the registry lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, w *common.World) {
	s := &steps{w: w}
	ctx.Step(`^a new holder$`, s.newHolder)
	ctx.Step(`^the holder applies for a passport$`, s.applyForPassport)
	ctx.Step(`^the holder has an active passport$`, s.holderHasActivePassport)
	ctx.Step(`^the administrator issues the passport for (\d+) years$`, func(years int) error {
		return s.issue(w.Config.Administrator, years)
	})
	ctx.Step(`^the holder issues their own passport for (\d+) years$`, func(years int) error {
		return s.issue(w.Holder, years)
	})
	ctx.Step(`^the administrator revokes the passport with reason "([^"]*)"$`, s.revokePassport)
	ctx.Step(`^the passport should verify as (valid|invalid)$`, s.passportShouldVerify)
	ctx.Step(`^the holder applies for a "([^"]*)" visa to "([^"]*)"$`, s.applyForVisa)
	ctx.Step(`^the administrator approves the visa for (\d+) months$`, s.approveVisa)
	ctx.Step(`^the administrator rejects the visa with reason "([^"]*)"$`, s.rejectVisa)
	ctx.Step(`^the visa status should be "([^"]*)"$`, s.visaStatusShouldBe)
	ctx.Step(`^the visa should verify as (valid|invalid)$`, s.visaShouldVerify)
}

func (s *steps) newHolder() error {
	s.w.Holder = "0xe2e-" + unique()
	return nil
}

func (s *steps) applyForPassport() error {
	err := s.w.Do(http.MethodPost, "/v1/passports", s.w.Holder, map[string]string{
		"full_name":        "E2E Traveller",
		"date_of_birth":    "1990-01-01",
		"nationality":      "NLD",
		"passport_number":  "E" + unique(),
		"document_pointer": "ipfs://e2e",
	})
	if err != nil {
		return err
	}
	if s.w.LastStatus == http.StatusCreated {
		var body struct {
			ID uint64 `json:"id"`
		}
		if err := s.w.Decode(&body); err != nil {
			return err
		}
		s.w.PassportID = body.ID
	}
	return nil
}

func (s *steps) holderHasActivePassport() error {
	if err := s.applyForPassport(); err != nil {
		return err
	}
	if err := s.issue(s.w.Config.Administrator, 10); err != nil {
		return err
	}
	if s.w.LastStatus != http.StatusOK {
		return fmt.Errorf("issue returned %d: %s", s.w.LastStatus, s.w.LastBody)
	}
	return nil
}

func (s *steps) issue(caller string, years int) error {
	return s.w.Do(http.MethodPost, fmt.Sprintf("/v1/passports/%d/issue", s.w.PassportID), caller,
		map[string]int{"validity_years": years})
}

func (s *steps) revokePassport(reason string) error {
	return s.w.Do(http.MethodPost, fmt.Sprintf("/v1/passports/%d/revoke", s.w.PassportID), s.w.Config.Administrator,
		map[string]string{"reason": reason})
}

func (s *steps) applyForVisa(visaType, country string) error {
	err := s.w.Do(http.MethodPost, "/v1/visas", s.w.Holder, map[string]any{
		"passport_id":         s.w.PassportID,
		"destination_country": country,
		"visa_type":           visaType,
	})
	if err != nil {
		return err
	}
	if s.w.LastStatus == http.StatusCreated {
		var body struct {
			ID uint64 `json:"id"`
		}
		if err := s.w.Decode(&body); err != nil {
			return err
		}
		s.w.VisaID = body.ID
	}
	return nil
}

func (s *steps) approveVisa(months int) error {
	return s.w.Do(http.MethodPost, fmt.Sprintf("/v1/visas/%d/approve", s.w.VisaID), s.w.Config.Administrator,
		map[string]int{"validity_months": months})
}

func (s *steps) rejectVisa(reason string) error {
	return s.w.Do(http.MethodPost, fmt.Sprintf("/v1/visas/%d/reject", s.w.VisaID), s.w.Config.Administrator,
		map[string]string{"reason": reason})
}

func (s *steps) visaStatusShouldBe(expected string) error {
	if err := s.w.Do(http.MethodGet, fmt.Sprintf("/v1/visas/%d", s.w.VisaID), s.w.Holder, nil); err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := s.w.Decode(&body); err != nil {
		return err
	}
	if body.Status != expected {
		return fmt.Errorf("expected visa status %q, got %q", expected, body.Status)
	}
	return nil
}

func (s *steps) passportShouldVerify(want string) error {
	return s.verify(fmt.Sprintf("/v1/passports/%d/verify", s.w.PassportID), want)
}

func (s *steps) visaShouldVerify(want string) error {
	return s.verify(fmt.Sprintf("/v1/visas/%d/verify", s.w.VisaID), want)
}

// verify checks a verify endpoint without clobbering the last recorded
// response, so a status assertion may follow.
func (s *steps) verify(path, want string) error {
	status, body := s.w.LastStatus, s.w.LastBody
	defer func() { s.w.LastStatus, s.w.LastBody = status, body }()

	if err := s.w.Do(http.MethodGet, path, s.w.Holder, nil); err != nil {
		return err
	}
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := s.w.Decode(&resp); err != nil {
		return err
	}
	if resp.Valid != (want == "valid") {
		return fmt.Errorf("expected %s to be %s", path, want)
	}
	return nil
}
