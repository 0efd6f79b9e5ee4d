// Package hub fans surface events out to connected stream clients.
//
// Server-sent-event clients attach through ServeHTTP; the websocket handler
// attaches through Subscribe. Every client gets its own buffered queue and a
// slow client loses messages rather than stalling the broadcast.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nodecanvas/internal/logging"
	"nodecanvas/internal/metrics"
)

// Transports label clients in logs and metrics.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// DefaultKeepAlive is the SSE comment interval used when none is configured.
const DefaultKeepAlive = 30 * time.Second

// Event is a typed message broadcast to every client.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client represents a connected stream client
type Client struct {
	id        string
	transport string
	events    chan []byte
}

// ID returns the client's connection id.
func (c *Client) ID() string { return c.id }

// Events delivers encoded events. It is closed when the client is
// unregistered or the hub stops.
func (c *Client) Events() <-chan []byte { return c.events }

// Hub manages stream client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	keepAlive  time.Duration
	logger     *zap.SugaredLogger
}

// Option configures a Hub.
type Option func(*Hub)

// WithKeepAlive sets the SSE keep-alive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithLogger sets the hub's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(h *Hub) { h.logger = l }
}

// New creates a new Hub
func New(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		keepAlive:  DefaultKeepAlive,
		logger:     logging.Named("hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and blocks until ctx is cancelled. All
// clients are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			h.drop(client)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.StreamClients.WithLabelValues(client.transport).Inc()
			h.logger.Infow("stream client connected", "client", client.id, "transport", client.transport, "total", total)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				h.drop(client)
			}
			total := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.logger.Infow("stream client disconnected", "client", client.id, "transport", client.transport, "total", total)
			}

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Errorw("failed to marshal event", "type", event.Type, "error", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- data:
				default:
					h.logger.Warnw("stream client is slow, skipping message", "client", client.id, "type", event.Type)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// drop removes a client; h.mu must be held for writing.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.events)
	metrics.StreamClients.WithLabelValues(client.transport).Dec()
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warnw("broadcast channel full, dropping event", "type", event.Type)
	}
}

// Subscribe registers a client for the given transport. It returns nil if
// the hub has stopped.
func (h *Hub) Subscribe(transport string) *Client {
	client := &Client{
		id:        uuid.NewString(),
		transport: transport,
		events:    make(chan []byte, 64),
	}
	select {
	case h.register <- client:
		return client
	case <-h.done:
		return nil
	}
}

// Unsubscribe removes a client. It is safe to call after the hub stopped.
func (h *Hub) Unsubscribe(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Check if client supports SSE
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.Subscribe(TransportSSE)
	if client == nil {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer h.Unsubscribe(client)

	// Send initial connection message
	fmt.Fprintf(w, ": connected %s\n\n", client.id)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
