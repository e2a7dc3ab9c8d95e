// Package dispatcher routes bridge commands to registered handlers.
package dispatcher

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/chiwar/fightcore/internal/fighterr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Queued is the result of a command accepted into a buffer.
const Queued = "queued"

// Event represents an incoming command from the API bridge.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(context.Context, Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the handler on its own worker behind a queue of size
// entries. Callers get Queued back as soon as the event is accepted.
func Buffered(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// Blocking makes a full buffer wait for room instead of rejecting the event.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged logs each call with its duration and failure.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

// route is one registered command.
type route struct {
	handle HandlerFunc
	// buffer is nil for commands served on the caller's goroutine
	buffer chan queuedEvent
}

// queuedEvent keeps the caller's context values without its cancellation,
// so an accepted command still runs after the caller returns.
type queuedEvent struct {
	ctx   context.Context
	event Event
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger  Logger
	metrics *instruments

	mu     sync.RWMutex
	routes map[string]*route

	workers sync.WaitGroup
	// gate is held for reading by every in-flight Dispatch so Close never
	// closes a buffer under a pending send.
	gate   sync.RWMutex
	closed bool
}

// New creates a Dispatcher. Metrics go to the global OTel meter, which is a
// no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}
	m, err := newInstruments(d.QueueDepths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// Register adds a handler for command, replacing any earlier one.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	h = d.recovering(command, h)
	if o.logged {
		h = d.logging(command, h)
	}

	run := d.counting(command, h)
	r := &route{handle: run}
	if o.bufferSize > 0 {
		r.buffer = make(chan queuedEvent, o.bufferSize)
		r.handle = d.enqueue(command, r.buffer, o.blocking)
		d.workers.Add(1)
		go d.drain(r.buffer, run)
	}

	d.mu.Lock()
	d.routes[command] = r
	d.mu.Unlock()
}

// Dispatch routes an event to its handler. An unregistered command is an
// INVALID_VALUE error.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fighterr.Newf(fighterr.CodeInvalidValue, "unknown command %q", e.Command)
	}

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return nil, fighterr.Newf(fighterr.CodeInternal, "dispatcher closed, %s not run", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return r.handle(ctx, e)
}

// HasHandler reports whether command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.routes))
}

// QueueDepths reports how many events wait in each buffered command's queue.
func (d *Dispatcher) QueueDepths() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	depths := make(map[string]int)
	for cmd, r := range d.routes {
		if r.buffer != nil {
			depths[cmd] = len(r.buffer)
		}
	}
	return depths
}

// Close stops accepting events and waits for buffered events to finish.
func (d *Dispatcher) Close() {
	d.gate.Lock()
	if d.closed {
		d.gate.Unlock()
		return
	}
	d.closed = true
	d.mu.RLock()
	for _, r := range d.routes {
		if r.buffer != nil {
			close(r.buffer)
		}
	}
	d.mu.RUnlock()
	d.gate.Unlock()

	d.workers.Wait()
}

// drain runs queued events until the buffer is closed.
func (d *Dispatcher) drain(buffer <-chan queuedEvent, run HandlerFunc) {
	defer d.workers.Done()
	for q := range buffer {
		_, _ = run(q.ctx, q.event)
	}
}

func (d *Dispatcher) enqueue(command string, buffer chan queuedEvent, blocking bool) HandlerFunc {
	attrs := commandAttrs(command)
	return func(ctx context.Context, e Event) (any, error) {
		q := queuedEvent{ctx: context.WithoutCancel(ctx), event: e}
		if blocking {
			buffer <- q
			return Queued, nil
		}
		select {
		case buffer <- q:
			return Queued, nil
		default:
			d.metrics.dropped.Add(ctx, 1, attrs)
			return nil, fighterr.Newf(fighterr.CodeInternal, "queue for %s is full", command)
		}
	}
}

func (d *Dispatcher) counting(command string, h HandlerFunc) HandlerFunc {
	attrs := commandAttrs(command)
	return func(ctx context.Context, e Event) (any, error) {
		result, err := h(ctx, e)
		d.metrics.processed.Add(ctx, 1, attrs)
		if err != nil {
			d.metrics.failed.Add(ctx, 1, attrs)
		}
		return result, err
	}
}

func (d *Dispatcher) recovering(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("handler panicked", "command", command, "panic", r)
				result = nil
				err = fighterr.Newf(fighterr.CodeInternal, "handler panicked: %s: %v", command, r)
			}
		}()
		return h(ctx, e)
	}
}

func (d *Dispatcher) logging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(ctx, e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}

func commandAttrs(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}
