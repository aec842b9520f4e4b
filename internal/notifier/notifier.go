// Package notifier fans committed registry events out to live subscribers
// and external sinks. Delivery is best effort and never feeds back into the
// registries.
//
// Events reach subscribers and sinks in the order Publish was called. With a
// single shared transaction runner that is commit order. When registries
// commit under separate locks, two commits can publish in either order, so
// Event.Seq is the authoritative order and consumers sort or backfill by it.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"travelcred/pkg/platform/circuit"
)

const (
	defaultBuffer           = 256
	defaultSubscriberBuffer = 64
	defaultSinkTimeout      = 5 * time.Second
	defaultSinkCooldown     = 10 * time.Second
	sinkFailureThreshold    = 3
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("notifier closed")

// Sink receives every published event, in publish order.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
	Close() error
}

// Metrics is the subset of counters the notifier reports. A nil Metrics is allowed.
type Metrics interface {
	IncPublished(t Type)
	IncDropped(reason string)
	IncSinkFailure(sink string)
}

type subscriber struct {
	ch     chan Event
	closed bool
}

// Notifier is the process-wide publish point.
type Notifier struct {
	logger       *slog.Logger
	metrics      Metrics
	sinks        []Sink
	breakers     []*circuit.Breaker
	sinkTimeout  time.Duration
	sinkCooldown time.Duration
	subBuffer    int

	queue chan Event
	done  chan struct{}

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBuffer sets the publish queue capacity.
func WithBuffer(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.queue = make(chan Event, n)
		}
	}
}

// WithSink adds an external sink.
func WithSink(s Sink) Option {
	return func(nt *Notifier) { nt.sinks = append(nt.sinks, s) }
}

// WithSinkCooldown sets how long a failing sink is skipped before it is retried.
func WithSinkCooldown(d time.Duration) Option {
	return func(nt *Notifier) { nt.sinkCooldown = d }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) Option {
	return func(nt *Notifier) { nt.metrics = m }
}

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.subBuffer = n
		}
	}
}

// New starts the dispatcher goroutine. Call Close to drain and stop it.
func New(logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		logger:       logger,
		sinkTimeout:  defaultSinkTimeout,
		sinkCooldown: defaultSinkCooldown,
		subBuffer:    defaultSubscriberBuffer,
		queue:        make(chan Event, defaultBuffer),
		done:         make(chan struct{}),
		subs:         make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(n)
	}
	for _, s := range n.sinks {
		n.breakers = append(n.breakers, circuit.New(s.Name(),
			circuit.WithFailureThreshold(sinkFailureThreshold),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(n.sinkCooldown),
		))
	}
	go n.run()
	return n
}

// Publish enqueues e without blocking. When the queue is full the event is
// dropped; consumers recover it from the transition log by seq.
func (n *Notifier) Publish(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- e:
		if n.metrics != nil {
			n.metrics.IncPublished(e.Type)
		}
	default:
		n.logger.Warn("event queue full, dropping event",
			"event_type", e.Type,
			"seq", e.Seq,
		)
		if n.metrics != nil {
			n.metrics.IncDropped("queue_full")
		}
	}
}

// Subscribe returns a channel of events published after the call. The
// channel closes when ctx ends, when the notifier closes, or when the
// subscriber falls a full buffer behind.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil, ErrClosed
	}
	id := n.nextID
	n.nextID++
	sub := &subscriber{ch: make(chan Event, n.subBuffer)}
	n.subs[id] = sub
	n.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-n.done:
		}
		n.mu.Lock()
		n.dropLocked(id)
		n.mu.Unlock()
	}()
	return sub.ch, nil
}

// Subscribers returns the number of live subscribers.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func (n *Notifier) dropLocked(id int) {
	sub, ok := n.subs[id]
	if !ok {
		return
	}
	delete(n.subs, id)
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for e := range n.queue {
		n.fanOut(e)
		n.deliverSinks(e)
	}
}

func (n *Notifier) fanOut(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, sub := range n.subs {
		select {
		case sub.ch <- e:
		default:
			n.logger.Warn("dropping slow event subscriber", "seq", e.Seq)
			if n.metrics != nil {
				n.metrics.IncDropped("slow_subscriber")
			}
			n.dropLocked(id)
		}
	}
}

func (n *Notifier) deliverSinks(e Event) {
	for i, s := range n.sinks {
		breaker := n.breakers[i]
		if !breaker.Allow() {
			if n.metrics != nil {
				n.metrics.IncDropped("sink_open")
			}
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.sinkTimeout)
		err := s.Deliver(ctx, e)
		cancel()
		if err != nil {
			n.logger.Error("event sink delivery failed",
				"sink", s.Name(),
				"event_type", e.Type,
				"seq", e.Seq,
				"error", err,
			)
			if n.metrics != nil {
				n.metrics.IncSinkFailure(s.Name())
			}
			if _, change := breaker.RecordFailure(); change.Opened {
				n.logger.Warn("event sink disabled after repeated failures",
					"sink", s.Name(),
					"cooldown", n.sinkCooldown,
				)
			}
			continue
		}
		if _, change := breaker.RecordSuccess(); change.Closed {
			n.logger.Info("event sink recovered", "sink", s.Name())
		}
	}
}

// Close stops accepting events, drains the queue to subscribers and sinks,
// then closes the sinks. It returns early with ctx's error if draining
// outlasts ctx.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	select {
	case <-n.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	n.mu.Lock()
	for id := range n.subs {
		n.dropLocked(id)
	}
	n.mu.Unlock()

	var errs []error
	for _, s := range n.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Marshal encodes e for sinks.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(e)
}
