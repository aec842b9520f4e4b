package testutil

import (
	"net/http"
	"time"

	"travelcred/pkg/domain"
	"travelcred/pkg/requestcontext"
)

// AsCaller sets the authenticated caller on req, as RequireCaller would.
func AsCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), domain.Identity(caller)))
}

// AtTime pins the request clock.
func AtTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
