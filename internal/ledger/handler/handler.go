// Package handler serves the transition log for dashboard replay.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"travelcred/internal/ledger/models"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/httputil"
	"travelcred/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, afterSeq uint64, limit int) ([]models.Entry, error)
	Verify(ctx context.Context, afterSeq uint64, entries []models.Entry) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/transitions", h.HandleList)
}

type listResponse struct {
	Transitions []models.Entry `json:"transitions"`
	NextAfter   uint64         `json:"next_after,omitempty"`
	Verified    *bool          `json:"verified,omitempty"`
	Problem     string         `json:"verification_error,omitempty"`
}

// HandleList handles GET /transitions?after=&limit=&verify=.
// With verify=true the page is checked against the hash chain.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	after, limit, err := httputil.PageParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verify := false
	if raw := r.URL.Query().Get("verify"); raw != "" {
		verify, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "verify must be a boolean"))
			return
		}
	}

	entries, err := h.service.List(ctx, after, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list transitions failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := listResponse{Transitions: entries}
	if len(entries) > 0 {
		resp.NextAfter = entries[len(entries)-1].Seq
	}
	if verify {
		ok := true
		if err := h.service.Verify(ctx, after, entries); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				httputil.WriteError(w, err)
				return
			}
			ok = false
			resp.Problem = err.Error()
			h.logger.ErrorContext(ctx, "transition log failed verification",
				"request_id", requestcontext.RequestID(ctx),
				"after", after,
				"error", err,
			)
		}
		resp.Verified = &ok
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
