// Package audit writes structured audit lines for committed registry
// transitions. The transition log is the durable record; these lines feed
// log pipelines.
package audit

import (
	"context"
	"log/slog"

	"travelcred/pkg/attrs"
	"travelcred/pkg/requestcontext"
)

// Emitter is nil-safe: a nil *Emitter or nil logger discards everything.
type Emitter struct {
	logger *slog.Logger
}

func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{logger: logger}
}

// Emit logs event with the given key/value attributes plus request_id and,
// unless attributes already name one, the calling actor.
func (e *Emitter) Emit(ctx context.Context, event string, attributes ...any) {
	if e == nil || e.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if !attrs.Has(attributes, "actor") {
		if caller := requestcontext.Caller(ctx); !caller.IsZero() {
			attributes = append(attributes, "actor", caller)
		}
	}
	attributes = append(attributes, "event", event, "log_type", "audit")
	e.logger.InfoContext(ctx, event, attributes...)
}
