// Package ws pushes storefront events to browsers over WebSocket using
// gorilla/websocket.
//
//	hub := ws.NewHub(config.CORSOrigins())
//	hub.Start(ctx)
//	defer hub.Close()
//
//	dispatcher.ListenAll(hub.Listener())
//	router.Handle("/ws", "ws", hub)
//
// Every connected client receives {"event": name, "data": payload}.
// Delivery is best-effort: a client whose send buffer is full is dropped.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Frame is the JSON document written to clients.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ─── Client ───────────────────────────────────────────────────────────────────

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump only services control frames; clients have nothing to say.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

// Hub owns the connected clients. All membership changes happen on the
// goroutine started by Start.
type Hub struct {
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	started   atomic.Bool
	count     atomic.Int64
}

// NewHub creates a hub accepting upgrades from the given origins. An empty
// list or "*" accepts any origin.
func NewHub(origins []string) *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || slices.Contains(origins, o)
	}
}

// Start runs the hub loop until ctx is cancelled or Close is called.
func (h *Hub) Start(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	go h.run(ctx)
}

// Close disconnects every client and stops the hub. Safe to call more than
// once and before Start.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	if h.started.Load() {
		<-h.stopped
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.stopped)

	clients := make(map[*client]struct{})
	drop := func(c *client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			h.count.Add(-1)
			metrics.WebsocketClients.Dec()
		}
	}
	defer func() {
		for c := range clients {
			drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.count.Add(1)
			metrics.WebsocketClients.Inc()
			logger.Debug("ws: client connected", "total", len(clients))

		case c := <-h.unregister:
			drop(c)

		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					logger.Warn("ws: dropping slow client")
					drop(c)
				}
			}
		}
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Publish broadcasts an event. It never blocks: when the broadcast queue is
// full the event is dropped.
func (h *Hub) Publish(ctx context.Context, name string, payload any) {
	msg, err := json.Marshal(Frame{Event: name, Data: payload})
	if err != nil {
		logger.WithCtx(ctx).Error("ws: encode event", "event", name, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.WithCtx(ctx).Warn("ws: broadcast queue full, event dropped", "event", name)
	}
}

// Listener adapts the hub to an event.Dispatcher listener.
func (h *Hub) Listener() func(ctx context.Context, name string, payload any) {
	return h.Publish
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.stopped:
		conn.Close()
		return
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
