package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultConcurrency = 1000
	defaultTimeout     = 10 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus is an in-memory event bus. Handlers run asynchronously, detached from the
// publisher's cancellation, with at most Concurrency of them in flight.
type Bus struct {
	sem      *semaphore.Weighted
	timeout  time.Duration
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool // guarded by mu, together with wg.Add
	handlers map[string][]Handler
}

type Option func(b *busOptions)

type busOptions struct {
	concurrency int64
	timeout     time.Duration
}

// WithConcurrency bounds the number of handlers running at once.
func WithConcurrency(n int64) Option {
	return func(o *busOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithTimeout bounds the run time of every handler invocation.
func WithTimeout(d time.Duration) Option {
	return func(o *busOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewBus creates a new event bus. Caller should call Stop for graceful shutdown of the bus.
func NewBus(opts ...Option) *Bus {
	o := busOptions{
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Bus{
		sem:      semaphore.NewWeighted(o.concurrency),
		timeout:  o.timeout,
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers h for events with the given name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Publish dispatches e to every subscriber. Events published after Stop are dropped.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		slog.WarnContext(ctx, "event: bus stopped, dropping event", "event", e.Name())
		return
	}
	hs := b.handlers[e.Name()]
	b.wg.Add(len(hs))
	b.mu.RUnlock()

	for _, h := range hs {
		b.dispatch(ctx, h, e)
	}
}

// dispatch runs h in its own goroutine. The caller has already added it to wg.
func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	// Acquire only fails on a cancelled context, which Background never is.
	_ = b.sem.Acquire(context.Background(), 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "event: handler panic",
					"event", e.Name(),
					"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
				)
			}

			cancel()
			b.sem.Release(1)
			b.wg.Done()
		}()

		if err := h(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event: handle event failed",
				"event", e.Name(),
				"error", err,
			)
		}
	}()
}

// Stop rejects new events and waits for in-flight handlers to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	b.wg.Wait()
}
