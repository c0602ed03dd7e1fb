package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The server binds to loopback only; the dashboard is a local page.
		return true
	},
}

// Hub fans captured activity out to connected dashboard clients.
type Hub struct {
	log *logrus.Entry

	mu      sync.Mutex
	clients map[*hubClient]bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*hubClient]bool),
	}
}

// ServeWS upgrades a request to a WebSocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.log.WithField("clients", count).Debug("dashboard client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast sends v, JSON-encoded, to every connected client. Clients too
// slow to drain their queue are dropped.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Warn("failed to encode broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Clients returns the current subscriber count.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
}

// readPump discards inbound frames; the stream is one way. Its real job is
// noticing the close.
func (h *Hub) readPump(c *hubClient) {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}
