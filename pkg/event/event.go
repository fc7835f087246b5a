// Package event dispatches domain events (newOrder, productUpdated) from the
// services to their listeners.
//
//	d := event.NewDispatcher()
//	d.ListenAll(hub.Listener())
//	orders := services.NewOrderService(..., d)
package event

import (
	"context"
	"sync"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// Event names.
const (
	NewOrder       = "newOrder"
	ProductUpdated = "productUpdated"
)

// Publisher is what the services depend on.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any)
}

// Listener receives a published event.
type Listener func(ctx context.Context, name string, payload any)

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

// Dispatcher fans events out to listeners synchronously. Listeners must not
// block; a panicking listener is logged and skipped.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Listener
	all      []Listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string][]Listener{}}
}

// Listen registers l for one event name.
func (d *Dispatcher) Listen(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], l)
}

// ListenAll registers l for every event.
func (d *Dispatcher) ListenAll(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, l)
}

func (d *Dispatcher) Publish(ctx context.Context, name string, payload any) {
	d.mu.RLock()
	ls := make([]Listener, 0, len(d.handlers[name])+len(d.all))
	ls = append(ls, d.handlers[name]...)
	ls = append(ls, d.all...)
	d.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(name).Inc()
	for _, l := range ls {
		d.call(ctx, l, name, payload)
	}
}

func (d *Dispatcher) call(ctx context.Context, l Listener, name string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", name, "panic", r)
		}
	}()
	l(ctx, name, payload)
}

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

// Recorded is one event captured by a Recorder.
type Recorded struct {
	Name    string
	Payload any
}

func (r *Recorder) Publish(_ context.Context, name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Name: name, Payload: payload})
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Name
	}
	return out
}
