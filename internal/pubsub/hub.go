package pubsub

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// envelope is the wire format pushed to websocket consumers.
type envelope struct {
	Type   string `json:"type"`
	Models any    `json:"models,omitempty"`
}

// Hub manages the active websocket connections and broadcasts change
// envelopes to all of them.
type Hub struct {
	logger     *zap.Logger
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a hub. Call Run in a goroutine before publishing.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger.Named("pubsub"),
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run owns the client set until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info("client connected", zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				c.close()
				h.logger.Info("client disconnected", zap.Int("clients", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, c)
					c.close()
				}
			}
		}
	}
}

// Publish queues an envelope for broadcast. When the buffer is full the
// envelope is dropped; the change stream is advisory, the database is the
// source of truth.
func (h *Hub) Publish(entityType string, payload any) {
	msg, err := json.Marshal(envelope{Type: entityType, Models: payload})
	if err != nil {
		h.logger.Error("failed to encode envelope",
			zap.String("type", entityType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast buffer full, dropping envelope",
			zap.String("type", entityType))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bot serves its own UI; no cross-origin policy to enforce.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(h, conn)
	h.register <- c
	go c.writePump()
	go c.readPump()
}
