package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcred/internal/identity/service"
	"travelcred/internal/identity/store"
	ledgerservice "travelcred/internal/ledger/service"
	ledgerstore "travelcred/internal/ledger/store"
	"travelcred/pkg/testutil"
)

const admin = "0xadmin"

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	svc, err := service.New(admin, store.NewInMemory(), ledgerservice.New(ledgerstore.NewInMemory()))
	require.NoError(t, err)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestOfficerLifecycleOverHTTP(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodPut, "/officers/passport/0xofficer"), admin))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/officers/passport/0xofficer"))
	testutil.AssertStatusOK(t, rr)
	check := testutil.UnmarshalResponse[checkResponse](t, rr)
	assert.True(t, check.Authorized)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/officers/visa/0xofficer"))
	check = testutil.UnmarshalResponse[checkResponse](t, rr)
	assert.False(t, check.Authorized)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/officers/passport"))
	testutil.AssertStatusOK(t, rr)
	list := testutil.UnmarshalResponse[officersResponse](t, rr)
	require.Len(t, list.Officers, 1)

	rr = testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodDelete, "/officers/passport/0xofficer"), admin))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestNonAdministratorIsForbidden(t *testing.T) {
	r := newRouter(t)
	rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodPut, "/officers/visa/0xmallory"), "0xmallory"))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "unauthorized")
}

func TestUnknownKind(t *testing.T) {
	r := newRouter(t)
	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/officers/customs"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestAdministrator(t *testing.T) {
	r := newRouter(t)
	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/administrator"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "identity", admin)
}
