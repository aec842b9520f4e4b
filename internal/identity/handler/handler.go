package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"travelcred/internal/identity/models"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/httputil"
	"travelcred/pkg/requestcontext"
)

// Service is the identity authority surface exposed over HTTP.
type Service interface {
	Administrator() domain.Identity
	IsAuthorizedOfficer(ctx context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error)
	AddOfficer(ctx context.Context, caller domain.Identity, kind domain.RegistryKind, identity domain.Identity) error
	RemoveOfficer(ctx context.Context, caller domain.Identity, kind domain.RegistryKind, identity domain.Identity) error
	ListOfficers(ctx context.Context, kind domain.RegistryKind) ([]models.Officer, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the role endpoints. Callers must already be authenticated.
func (h *Handler) Register(r chi.Router) {
	r.Get("/administrator", h.HandleAdministrator)
	r.Route("/officers/{kind}", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{identity}", h.HandleCheck)
		r.Put("/{identity}", h.HandleAdd)
		r.Delete("/{identity}", h.HandleRemove)
	})
}

type administratorResponse struct {
	Identity domain.Identity `json:"identity"`
}

type officersResponse struct {
	Kind     domain.RegistryKind `json:"kind"`
	Officers []models.Officer    `json:"officers"`
}

type checkResponse struct {
	Kind       domain.RegistryKind `json:"kind"`
	Identity   domain.Identity     `json:"identity"`
	Authorized bool                `json:"authorized"`
}

func (h *Handler) HandleAdministrator(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, administratorResponse{Identity: h.service.Administrator()})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseRegistryKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListOfficers(r.Context(), kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, officersResponse{Kind: kind, Officers: list})
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	kind, identity, ok := h.parseAssignment(w, r)
	if !ok {
		return
	}
	authorized, err := h.service.IsAuthorizedOfficer(r.Context(), kind, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, checkResponse{Kind: kind, Identity: identity, Authorized: authorized})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, identity, ok := h.parseAssignment(w, r)
	if !ok {
		return
	}
	if err := h.service.AddOfficer(ctx, requestcontext.Caller(ctx), kind, identity); err != nil {
		h.logger.WarnContext(ctx, "add officer failed",
			"request_id", requestcontext.RequestID(ctx),
			"kind", kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, identity, ok := h.parseAssignment(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveOfficer(ctx, requestcontext.Caller(ctx), kind, identity); err != nil {
		h.logger.WarnContext(ctx, "remove officer failed",
			"request_id", requestcontext.RequestID(ctx),
			"kind", kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseAssignment(w http.ResponseWriter, r *http.Request) (domain.RegistryKind, domain.Identity, bool) {
	kind, err := domain.ParseRegistryKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", "", false
	}
	identity, err := PathIdentity(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return "", "", false
	}
	return kind, identity, true
}

// PathIdentity reads and parses an identity URL parameter.
func PathIdentity(r *http.Request, param string) (domain.Identity, error) {
	raw := chi.URLParam(r, param)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return domain.ParseIdentity(raw)
}
