package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityservice "travelcred/internal/identity/service"
	identitystore "travelcred/internal/identity/store"
	ledgerservice "travelcred/internal/ledger/service"
	ledgerstore "travelcred/internal/ledger/store"
	passportmodels "travelcred/internal/passport/models"
	passportservice "travelcred/internal/passport/service"
	passportstore "travelcred/internal/passport/store"
	"travelcred/internal/visa/adapters"
	"travelcred/internal/visa/models"
	"travelcred/internal/visa/service"
	"travelcred/internal/visa/store"
	"travelcred/pkg/domain"
	"travelcred/pkg/requestcontext"
	"travelcred/pkg/testutil"
)

const (
	admin   = "0xadmin"
	officer = "0xvisa-officer"
	holder  = "0xholder1"
)

var now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

// newRouter returns a visa router whose passport registry already holds an
// active passport 1 for holder.
func newRouter(t *testing.T) chi.Router {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), now)
	log := ledgerservice.New(ledgerstore.NewInMemory())
	authority, err := identityservice.New(admin, identitystore.NewInMemory(), log)
	require.NoError(t, err)
	require.NoError(t, authority.Bootstrap(ctx))
	require.NoError(t, authority.AddOfficer(ctx, admin, domain.RegistryVisa, officer))

	passports := passportservice.New(passportstore.NewInMemory(), authority, log)
	pid, err := passports.ApplyForPassport(ctx, holder, passportmodels.Application{
		FullName: "Ada", DateOfBirth: "1815-12-10", Nationality: "GBR", PassportNumber: "P1",
	})
	require.NoError(t, err)
	_, err = passports.IssuePassport(ctx, admin, pid, 10)
	require.NoError(t, err)

	svc, err := service.New(store.NewInMemory(), adapters.NewPassportAdapter(passports), authority, log)
	require.NoError(t, err)

	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterApply(r)
	h.Register(r)
	return r
}

func do(r http.Handler, req *http.Request, caller string) *httptest.ResponseRecorder {
	return testutil.DoRequest(r, testutil.AtTime(testutil.AsCaller(req, caller), now))
}

func TestVisaLifecycleOverHTTP(t *testing.T) {
	r := newRouter(t)

	testutil.Given(t, "the holder applies with a numeric visa type", func(t *testing.T) {
		rr := do(r, testutil.NewRequestWithBody(t, http.MethodPost, "/visas",
			`{"passport_id":1,"destination_country":"France","visa_type":0}`), holder)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "id", float64(1))
	})

	testutil.When(t, "the officer approves for six months", func(t *testing.T) {
		rr := do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/1/approve", map[string]int{"validity_months": 6}), officer)
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[VisaResponse](t, rr)
		assert.Equal(t, models.StatusApproved, got.Status)
		assert.Equal(t, models.TypeTourist, got.VisaType)
		require.NotNil(t, got.ExpiryDate)
		assert.True(t, now.Add(180*24*time.Hour).Equal(*got.ExpiryDate))
	})

	testutil.Then(t, "it verifies and is listed for the applicant", func(t *testing.T) {
		rr := do(r, testutil.NewRequest(t, http.MethodGet, "/visas/1/verify"), "0xborder")
		testutil.AssertJSONContains(t, rr, "valid", true)

		rr = do(r, testutil.NewRequest(t, http.MethodGet, "/applicants/"+holder+"/visas"), "0xborder")
		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, []domain.VisaID{1}, testutil.UnmarshalResponse[idsResponse](t, rr).IDs)
	})

	testutil.When(t, "the officer revokes it", func(t *testing.T) {
		rr := do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/1/revoke", map[string]string{"reason": "fraud"}), officer)
		testutil.AssertStatusOK(t, rr)

		rr = do(r, testutil.NewRequest(t, http.MethodGet, "/visas/1/verify"), "0xborder")
		testutil.AssertJSONContains(t, rr, "valid", false)
	})
}

func TestApplyAgainstUnknownPassport(t *testing.T) {
	r := newRouter(t)
	rr := do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas", map[string]any{
		"passport_id": 99, "destination_country": "France", "visa_type": "Tourist",
	}), holder)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestRejectRequiresReason(t *testing.T) {
	r := newRouter(t)
	rr := do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas", map[string]any{
		"passport_id": 1, "destination_country": "Japan", "visa_type": "work",
	}), holder)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/1/reject", map[string]string{"reason": ""}), officer)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/1/reject", map[string]string{"reason": "incomplete"}), officer)
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[VisaResponse](t, rr)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Nil(t, got.ExpiryDate)

	rr = do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/1/approve", map[string]int{"validity_months": 6}), officer)
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
}

func TestApproveRequiresVisaOfficer(t *testing.T) {
	r := newRouter(t)
	rr := do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas", map[string]any{
		"passport_id": 1, "destination_country": "France", "visa_type": "Business",
	}), holder)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/1/approve", map[string]int{"validity_months": 6}), holder)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "unauthorized")
}

func TestApplyValidation(t *testing.T) {
	r := newRouter(t)
	tests := []struct {
		name string
		body string
	}{
		{"type out of range", `{"passport_id":1,"destination_country":"France","visa_type":5}`},
		{"unknown type name", `{"passport_id":1,"destination_country":"France","visa_type":"Diplomatic"}`},
		{"missing type", `{"passport_id":1,"destination_country":"France"}`},
		{"missing destination", `{"passport_id":1,"destination_country":"  ","visa_type":"Tourist"}`},
		{"missing passport", `{"destination_country":"France","visa_type":"Tourist"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(r, testutil.NewRequestWithBody(t, http.MethodPost, "/visas", tt.body), holder)
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	}
}

func TestListVisasByStatus(t *testing.T) {
	r := newRouter(t)
	for range 3 {
		rr := do(r, testutil.NewRequestWithBody(t, http.MethodPost, "/visas",
			`{"passport_id":1,"destination_country":"France","visa_type":"Transit"}`), holder)
		testutil.AssertStatus(t, rr, http.StatusCreated)
	}
	rr := do(r, testutil.NewJSONRequest(t, http.MethodPost, "/visas/2/approve", map[string]int{"validity_months": 1}), officer)
	testutil.AssertStatusOK(t, rr)

	rr = do(r, testutil.NewRequest(t, http.MethodGet, "/visas?status=Pending"), officer)
	testutil.AssertStatusOK(t, rr)
	page := testutil.UnmarshalResponse[listResponse](t, rr)
	require.Len(t, page.Visas, 2)
	assert.Equal(t, domain.VisaID(1), page.Visas[0].ID)
	assert.Equal(t, domain.VisaID(3), page.Visas[1].ID)

	rr = do(r, testutil.NewRequest(t, http.MethodGet, "/visas?status=Approved,Expired&after=1&limit=1"), officer)
	page = testutil.UnmarshalResponse[listResponse](t, rr)
	require.Len(t, page.Visas, 1)
	assert.Equal(t, domain.VisaID(2), page.NextAfter)
}
