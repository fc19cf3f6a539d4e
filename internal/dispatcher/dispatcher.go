// Package dispatcher routes UI signals (slider moves, button clicks, popup
// actions) to the handlers that act on them, synchronously or through a
// per-command queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned by Dispatch once the dispatcher has been closed.
var ErrClosed = errors.New("dispatcher closed")

// Queued is the result of an event accepted by a buffered handler.
const Queued = "queued"

// Event is one UI signal.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// NewEvent stamps an event with the current time.
func NewEvent(command string, args ...string) Event {
	return Event{Command: command, Args: args, Timestamp: time.Now()}
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	coalesce   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Coalesced makes a full buffered queue drop its oldest pending event to
// admit the new one, so the newest signal is never lost.
func Coalesced() Option {
	return func(c *config) {
		c.coalesce = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger  Logger
	metrics *instruments

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	buffers  map[string]chan Event
	closed   bool
	workers  sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter, a no-op
// until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	m, err := newInstruments(d.queueLengths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// queueLengths reports the pending events of every buffered command.
func (d *Dispatcher) queueLengths(observe func(command string, n int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, buf := range d.buffers {
		observe(cmd, len(buf))
	}
}

// Register adds a handler for the given command with optional configuration.
// Registering a command twice replaces the previous handler; a replaced queue
// is closed once its pending events are handled. Registering after Close is
// ignored.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Error("register after close", "command", command)
		return
	}

	if old, ok := d.buffers[command]; ok {
		close(old)
		delete(d.buffers, command)
	}
	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg, handler)
	}
	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	closed := d.closed
	d.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Close stops accepting events and waits until every queued event has been
// handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

// withBuffer starts the queue worker. The caller holds d.mu.
func (d *Dispatcher) withBuffer(command string, cfg *config, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, cfg.bufferSize)
	d.buffers[command] = buffer

	cmdAttr := metric.WithAttributes(attribute.String("command", command))

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.metrics.failed.Add(context.Background(), 1, cmdAttr)
				d.logger.Error("queued event failed", "command", command, "error", err)
			}
			d.metrics.processed.Add(context.Background(), 1, cmdAttr)
		}
	}()

	// sends hold the read lock so Close and Register cannot close the
	// channel under them
	send := func(e Event) (any, error) {
		d.mu.RLock()
		if d.closed {
			d.mu.RUnlock()
			return nil, ErrClosed
		}
		if d.buffers[command] != buffer {
			// replaced since the caller looked it up
			d.mu.RUnlock()
			return d.Dispatch(e)
		}
		defer d.mu.RUnlock()

		switch {
		case cfg.blocking:
			buffer <- e
			return Queued, nil
		case cfg.coalesce:
			for {
				select {
				case buffer <- e:
					return Queued, nil
				default:
				}
				select {
				case <-buffer:
					d.metrics.dropped.Add(context.Background(), 1, cmdAttr)
				default:
				}
			}
		default:
			select {
			case buffer <- e:
				return Queued, nil
			default:
				d.metrics.dropped.Add(context.Background(), 1, cmdAttr)
				return nil, fmt.Errorf("queue full: %s", command)
			}
		}
	}
	return send
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", e.Args)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
