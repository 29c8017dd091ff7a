package server

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub maintains the set of active WebSocket clients and routes messages to
// the clients of one calendar session
type Hub struct {
	clients    map[*Client]bool
	publish    chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger

	mu sync.RWMutex
}

type envelope struct {
	sessionID string
	data      []byte
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		publish:    make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop; it returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("WebSocket client connected",
				zap.String("session_id", client.sessionID),
				zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("WebSocket client disconnected",
				zap.String("session_id", client.sessionID),
				zap.Int("total", total))

		case env := <-h.publish:
			h.mu.Lock()
			for client := range h.clients {
				if client.sessionID != env.sessionID {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					// Client send buffer full, close connection
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues msg for every client of the session
func (h *Hub) Publish(sessionID string, msg Message) {
	data, err := msg.JSON()
	if err != nil {
		h.logger.Error("Failed to encode WebSocket message", zap.Error(err))
		return
	}

	select {
	case h.publish <- envelope{sessionID: sessionID, data: data}:
	default:
		h.logger.Warn("Publish channel full, dropping message",
			zap.String("session_id", sessionID),
			zap.String("type", string(msg.Type)))
	}
}

// Register adds a client to the hub; it reports false once the hub has stopped
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
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

// Client is one WebSocket connection following a calendar session
type Client struct {
	sessionID string
	send      chan []byte
}

// NewClient creates a new WebSocket client for the session
func NewClient(sessionID string) *Client {
	return &Client{
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

// Send returns the send channel for the client
func (c *Client) Send() chan []byte {
	return c.send
}
