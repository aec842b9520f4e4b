package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"travelcred/internal/passport/models"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/httputil"
	"travelcred/pkg/requestcontext"
)

// Service defines the passport registry operations served over HTTP.
type Service interface {
	ApplyForPassport(ctx context.Context, holder domain.Identity, app models.Application) (domain.PassportID, error)
	IssuePassport(ctx context.Context, caller domain.Identity, id domain.PassportID, validityYears int) (*models.Passport, error)
	RevokePassport(ctx context.Context, caller domain.Identity, id domain.PassportID, reason string) (*models.Passport, error)
	VerifyPassport(ctx context.Context, id domain.PassportID) (bool, error)
	GetPassport(ctx context.Context, id domain.PassportID) (*models.Passport, error)
	GetPassportByHolder(ctx context.Context, holder domain.Identity) (domain.PassportID, error)
	ListPassports(ctx context.Context, f models.ListFilter) ([]*models.Passport, error)
}

// Handler wires passport endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read and transition routes. The apply route is
// mounted separately by RegisterApply so it can carry its own rate limit.
func (h *Handler) Register(r chi.Router) {
	r.Get("/passports", h.HandleList)
	r.Get("/passports/{id}", h.HandleGet)
	r.Get("/passports/{id}/verify", h.HandleVerify)
	r.Post("/passports/{id}/issue", h.HandleIssue)
	r.Post("/passports/{id}/revoke", h.HandleRevoke)
	r.Get("/holders/{identity}/passport", h.HandleByHolder)
}

func (h *Handler) RegisterApply(r chi.Router) {
	r.Post("/passports", h.HandleApply)
}

// HandleApply handles POST /passports.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	id, err := h.service.ApplyForPassport(ctx, requestcontext.Caller(ctx), req.app)
	if err != nil {
		h.logFailure(ctx, "passport application failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	after, limit, err := httputil.PageParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListPassports(r.Context(), models.ListFilter{
		Statuses: statuses,
		AfterID:  domain.PassportID(after),
		Limit:    limit,
	})
	if err != nil {
		h.logFailure(r.Context(), "list passports failed", err)
		httputil.WriteError(w, err)
		return
	}
	resp := listResponse{Passports: make([]PassportResponse, 0, len(list))}
	for _, p := range list {
		resp.Passports = append(resp.Passports, FromPassport(p))
	}
	if len(list) > 0 {
		resp.NextAfter = list[len(list)-1].ID
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetPassport(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPassport(p))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	valid, err := h.service.VerifyPassport(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{ID: id, Valid: valid})
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.IssuePassport(ctx, requestcontext.Caller(ctx), id, req.ValidityYears)
	if err != nil {
		h.logFailure(ctx, "issue passport failed", err, "passport_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPassport(p))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePassportID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.RevokePassport(ctx, requestcontext.Caller(ctx), id, req.Reason)
	if err != nil {
		h.logFailure(ctx, "revoke passport failed", err, "passport_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPassport(p))
}

func (h *Handler) HandleByHolder(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "identity")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	holder, err := domain.ParseIdentity(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := h.service.GetPassportByHolder(r.Context(), holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, idResponse{ID: id})
}

// logFailure logs refused requests at warn and store failures at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
