package http

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"notifrelay/internal/domain"
)

// Client represents a connected SSE client, optionally scoped to one app.
type Client struct {
	app  string
	send chan []byte
}

// Hub manages all active SSE client connections.
// Single-instance model: all broadcast is in-process.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a new SSE Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a new SSE client. An empty app receives every notification.
func (h *Hub) Register(app string, send chan []byte) *Client {
	c := &Client{app: app, send: send}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("app", app).Msg("SSE client connected")
	return c
}

// Unregister removes an SSE client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	log.Debug().Str("app", c.app).Msg("SSE client disconnected")
}

// Broadcast sends a notification to every interested client.
// This satisfies the application.Broadcaster interface.
func (h *Hub) Broadcast(n *domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg := buildSSEMessage(n)
	for c := range h.clients {
		if c.app != "" && !strings.EqualFold(c.app, n.App) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// Client is slow/disconnected, skip
			log.Warn().Str("id", n.ID).Msg("SSE client send buffer full, skipping")
		}
	}
}

// ConnectedCount returns the total number of connected SSE clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
