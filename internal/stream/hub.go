// Package stream pushes listing refresh events to websocket subscribers.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"forseti-scan/internal/observability"
)

// Default configuration values.
const (
	DefaultSendBuffer = 16
	writeTimeout      = 10 * time.Second
)

// client is one connected subscriber. Slow clients are dropped rather than
// allowed to stall the broadcast path.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans refresh events out to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub with no connected clients.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(os.Stdout, "[stream] ", log.LstdFlags)
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the dashboard is served from another origin
			},
		},
	}
}

// ServeHTTP upgrades the connection and registers the client until it
// disconnects. Inbound messages are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, DefaultSendBuffer)}
	h.add(c)

	go h.writeLoop(c)

	// Read loop exists only to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

// Broadcast marshals the event and queues it to every client. Clients with
// a full send buffer are dropped.
func (h *Hub) Broadcast(event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("marshal broadcast: %v", err)
		return
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Printf("dropping slow stream client")
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.UpdateStreamClients(n)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		c.conn.Close()
		observability.UpdateStreamClients(n)
	}
}

// writeLoop drains the send buffer to the connection.
func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	c.conn.Close()
}
