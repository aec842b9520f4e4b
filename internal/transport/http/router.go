package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travelcred/internal/platform/metrics"
	"travelcred/internal/platform/ratelimit"
	"travelcred/pkg/platform/httputil"
	authmw "travelcred/pkg/platform/middleware/auth"
	"travelcred/pkg/platform/middleware/metadata"
	"travelcred/pkg/platform/middleware/request"
	"travelcred/pkg/platform/middleware/requesttime"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// ApplyRegistrar mounts the rate-limited application routes of a registry.
type ApplyRegistrar interface {
	RegisterApply(r chi.Router)
}

// RegistryRoutes is a registry handler with both route sets.
type RegistryRoutes interface {
	Registrar
	ApplyRegistrar
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router mounts. Nil handlers are skipped.
type Deps struct {
	Logger         *slog.Logger
	Tokens         authmw.JWTValidator
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	ApplyLimiter   *ratelimit.Limiter
	RequestTimeout time.Duration
	Health         map[string]HealthCheck

	Officers    Registrar
	Passports   RegistryRoutes
	Visas       RegistryRoutes
	Transitions Registrar
	Events      Registrar
}

// NewRouter wires the public API under /v1. Every /v1 route requires a bearer
// token; /healthz and /metrics are open. The event stream is mounted outside
// the request timeout so it can stay open.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Recovery(d.Logger))
	r.Use(d.Metrics.LatencyMiddleware)

	r.Get("/healthz", healthHandler(d.Health, d.Logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authmw.RequireCaller(d.Tokens, d.Logger))

		r.Group(func(r chi.Router) {
			if d.RequestTimeout > 0 {
				r.Use(request.Timeout(d.RequestTimeout))
			}
			for _, h := range []Registrar{d.Officers, d.Passports, d.Visas, d.Transitions} {
				if h != nil {
					h.Register(r)
				}
			}

			r.Group(func(r chi.Router) {
				if d.ApplyLimiter != nil {
					r.Use(d.ApplyLimiter.PerCaller(d.Logger))
				}
				for _, h := range []ApplyRegistrar{d.Passports, d.Visas} {
					if h != nil {
						h.RegisterApply(r)
					}
				}
			})
		})

		if d.Events != nil {
			d.Events.Register(r)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
