// Package redisstream appends registry events to a Redis stream.
package redisstream

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"travelcred/internal/notifier"
)

const defaultMaxLen = 100_000

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Sink XADDs one entry per event. The stream is trimmed approximately to
// MaxLen entries; the transition log remains the durable record.
type Sink struct {
	client streamAdder
	stream string
	maxLen int64
	closer func() error
}

// Option configures a Sink.
type Option func(*Sink)

// WithMaxLen overrides the approximate stream length cap.
func WithMaxLen(n int64) Option {
	return func(s *Sink) { s.maxLen = n }
}

// WithCloser sets a function run on Close, typically the client's Close.
func WithCloser(fn func() error) Option {
	return func(s *Sink) { s.closer = fn }
}

func New(client redis.Cmdable, stream string, opts ...Option) *Sink {
	s := &Sink{client: client, stream: stream, maxLen: defaultMaxLen}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Name() string { return "redis_stream" }

func (s *Sink) Deliver(ctx context.Context, e notifier.Event) error {
	body, err := notifier.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"seq":        strconv.FormatUint(e.Seq, 10),
			"event_type": string(e.Type),
			"key":        e.Key(),
			"event":      body,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
