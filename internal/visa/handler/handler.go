package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/httputil"
	"travelcred/pkg/requestcontext"
)

// Service defines the visa registry operations served over HTTP.
type Service interface {
	ApplyForVisa(ctx context.Context, applicant domain.Identity, app models.Application) (domain.VisaID, error)
	ApproveVisa(ctx context.Context, caller domain.Identity, id domain.VisaID, validityMonths int) (*models.Visa, error)
	RejectVisa(ctx context.Context, caller domain.Identity, id domain.VisaID, reason string) (*models.Visa, error)
	RevokeVisa(ctx context.Context, caller domain.Identity, id domain.VisaID, reason string) (*models.Visa, error)
	VerifyVisa(ctx context.Context, id domain.VisaID) (bool, error)
	GetVisa(ctx context.Context, id domain.VisaID) (*models.Visa, error)
	GetApplicantVisas(ctx context.Context, applicant domain.Identity) ([]domain.VisaID, error)
	ListVisas(ctx context.Context, f models.ListFilter) ([]*models.Visa, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/visas", h.HandleList)
	r.Get("/visas/{id}", h.HandleGet)
	r.Get("/visas/{id}/verify", h.HandleVerify)
	r.Post("/visas/{id}/approve", h.HandleApprove)
	r.Post("/visas/{id}/reject", h.HandleReject)
	r.Post("/visas/{id}/revoke", h.HandleRevoke)
	r.Get("/applicants/{identity}/visas", h.HandleApplicantVisas)
}

// RegisterApply mounts POST /visas, kept apart so the router can rate limit it.
func (h *Handler) RegisterApply(r chi.Router) {
	r.Post("/visas", h.HandleApply)
}

func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id, err := h.service.ApplyForVisa(ctx, requestcontext.Caller(ctx), req.app)
	if err != nil {
		h.logFailure(ctx, "visa application failed", err, "passport_id", req.app.PassportID)
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
	list, err := h.service.ListVisas(r.Context(), models.ListFilter{
		Statuses: statuses,
		AfterID:  domain.VisaID(after),
		Limit:    limit,
	})
	if err != nil {
		h.logFailure(r.Context(), "list visas failed", err)
		httputil.WriteError(w, err)
		return
	}
	resp := listResponse{Visas: make([]VisaResponse, 0, len(list))}
	for _, v := range list {
		resp.Visas = append(resp.Visas, FromVisa(v))
	}
	if len(list) > 0 {
		resp.NextAfter = list[len(list)-1].ID
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseVisaID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.GetVisa(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVisa(v))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseVisaID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	valid, err := h.service.VerifyVisa(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{ID: id, Valid: valid})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseVisaID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.ApproveVisa(ctx, requestcontext.Caller(ctx), id, req.ValidityMonths)
	h.writeTransition(w, r, "approve visa failed", id, v, err)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseVisaID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.RejectVisa(ctx, requestcontext.Caller(ctx), id, req.Reason)
	h.writeTransition(w, r, "reject visa failed", id, v, err)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseVisaID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.RevokeVisa(ctx, requestcontext.Caller(ctx), id, req.Reason)
	h.writeTransition(w, r, "revoke visa failed", id, v, err)
}

func (h *Handler) HandleApplicantVisas(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "identity")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	applicant, err := domain.ParseIdentity(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ids, err := h.service.GetApplicantVisas(r.Context(), applicant)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, idsResponse{IDs: ids})
}

func (h *Handler) writeTransition(w http.ResponseWriter, r *http.Request, msg string, id domain.VisaID, v *models.Visa, err error) {
	if err != nil {
		h.logFailure(r.Context(), msg, err, "visa_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVisa(v))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
