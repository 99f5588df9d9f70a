// Package push fans call events out to signed-in console clients over
// websockets. Clients are keyed by workspace so one tenant never sees
// another's ring notifications.
package push

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the writable side of a websocket. *websocket.Conn satisfies it;
// tests use a fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected console session.
type Client struct {
	ID          string
	WorkspaceID string
	Conn        Conn
	Send        chan []byte

	hub *Hub
}

// Hub maintains the set of active clients per workspace.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	logger *slog.Logger
	closed bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

const sendBuffer = 16

// Register attaches a connection and starts its write pump.
func (h *Hub) Register(workspaceID, clientID string, conn Conn) *Client {
	c := &Client{
		ID:          clientID,
		WorkspaceID: workspaceID,
		Conn:        conn,
		Send:        make(chan []byte, sendBuffer),
		hub:         h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.Send)
		_ = conn.Close()
		return c
	}
	set, ok := h.clients[workspaceID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[workspaceID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	return c
}

// Unregister detaches a client and closes its connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.WorkspaceID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.WorkspaceID)
	}
	close(c.Send)
}

// Broadcast sends an event to every client in the workspace. Slow clients
// whose buffers are full get dropped rather than blocking the caller.
func (h *Hub) Broadcast(workspaceID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("push marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[workspaceID] {
		select {
		case c.Send <- data:
		default:
			h.logger.Warn("dropping slow push client", "client_id", c.ID, "workspace_id", workspaceID)
			h.removeLocked(c)
		}
	}
}

// ClientCount reports connected clients for a workspace.
func (h *Hub) ClientCount(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}

// Close detaches every client. The hub accepts no registrations afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			close(c.Send)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.logger.Warn("push write failed", "client_id", c.ID, "error", err)
			c.hub.Unregister(c)
			// Drain so Broadcast never blocks on this client.
			for range c.Send {
			}
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
