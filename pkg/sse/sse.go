// Package sse streams storefront events to admin dashboards as
// Server-Sent Events, for clients that cannot hold a WebSocket.
//
//	broker := sse.NewBroker()
//	dispatcher.ListenAll(broker.Listener())
//	router.Handle("/api/events", "events.stream", broker, authn, admin)
//
// Each event is written as
//
//	event: newOrder
//	data: {...}
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

const (
	// HeartbeatInterval is how often an idle stream gets a comment line.
	HeartbeatInterval = 25 * time.Second
	subscriberBuffer  = 32
)

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is one open SSE response.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
}

// New sets the SSE headers. It answers 500 and returns nil when w cannot
// flush.
func New(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes a named event with a JSON payload.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	return s.write(event, payload)
}

func (s *Stream) write(event string, payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a comment line, ignored by EventSource clients.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Closed reports whether the client went away.
func (s *Stream) Closed() bool { return s.r.Context().Err() != nil }

// ─── Broker ───────────────────────────────────────────────────────────────────

type message struct {
	event   string
	payload []byte
}

// Broker fans published events out to every open stream. A subscriber that
// falls behind loses events rather than stalling the publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan message]struct{}

	heartbeat time.Duration
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan message]struct{}), heartbeat: HeartbeatInterval}
}

// WithHeartbeat overrides HeartbeatInterval.
func (b *Broker) WithHeartbeat(d time.Duration) *Broker {
	b.heartbeat = d
	return b
}

// Subscribers returns the number of open streams.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish implements event.Publisher.
func (b *Broker) Publish(ctx context.Context, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithCtx(ctx).Error("sse: encode event", "event", name, "error", err)
		return
	}
	msg := message{event: name, payload: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
			logger.WithCtx(ctx).Warn("sse: subscriber behind, event dropped", "event", name)
		}
	}
}

// Listener adapts the broker to an event.Dispatcher listener.
func (b *Broker) Listener() func(ctx context.Context, name string, payload any) {
	return b.Publish
}

func (b *Broker) subscribe() chan message {
	ch := make(chan message, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan message) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// ServeHTTP holds the response open and relays events until the client
// disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream := New(w, r)
	if stream == nil {
		return
	}
	ch := b.subscribe()
	defer b.unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if err := stream.write(msg.event, msg.payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.Comment("ping"); err != nil {
				return
			}
		}
	}
}
