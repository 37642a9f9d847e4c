// Package ws bridges websocket connections to the chat gateway. It owns
// transport concerns only: the registry and the gateway decide who gets
// what; the hub just moves bytes to attached connections.
package ws

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks live websocket clients by connection id and implements the
// delivery side of room broadcasts (chat.Peers).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Deliver hands payload to the named connection's write pump. It never
// blocks: a connection whose send buffer is full is treated as dead and
// the error reported as a soft failure to the router.
func (h *Hub) Deliver(connID string, payload []byte) error {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("connection %s not attached", connID)
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", connID)
	}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
}
