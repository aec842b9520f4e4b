// Package handler exposes the live event stream over Server-Sent Events.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"travelcred/internal/notifier"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/httputil"
	"travelcred/pkg/requestcontext"
)

const defaultHeartbeat = 15 * time.Second

type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan notifier.Event, error)
}

type Handler struct {
	events    Subscriber
	logger    *slog.Logger
	heartbeat time.Duration
}

type Option func(*Handler)

// WithHeartbeat sets how often an idle stream sends a keep-alive comment.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func New(events Subscriber, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{events: events, logger: logger, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleStream)
}

// HandleStream writes each published event as an SSE message whose id is
// the transition seq. A stream that ends because the client fell behind
// is resumed by replaying /transitions after the last seen id.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}
	ch, err := h.events.Subscribe(ctx)
	if errors.Is(err, notifier.ErrClosed) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": stream started\n\n")
	flusher.Flush()

	h.logger.InfoContext(ctx, "event stream opened",
		"request_id", requestcontext.RequestID(ctx),
		"caller", requestcontext.Caller(ctx),
	)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-ch:
			if !open {
				h.logger.InfoContext(ctx, "event stream closed by notifier",
					"request_id", requestcontext.RequestID(ctx),
				)
				return
			}
			payload, err := notifier.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n",
				strconv.FormatUint(e.Seq, 10), e.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
