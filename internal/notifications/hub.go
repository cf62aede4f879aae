package notifications

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

type connection struct {
	conn *websocket.Conn
	send chan FeedEvent
}

// Hub fans feed events out to every connected admin client.
type Hub struct {
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	mu          sync.RWMutex
	connections map[*connection]struct{}
	broadcast   chan FeedEvent
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewHub creates a feed hub and starts its broadcast loop.
func NewHub(logger *zap.Logger, allowedOrigin string) *Hub {
	h := &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		connections: make(map[*connection]struct{}),
		broadcast:   make(chan FeedEvent, 256),
		stop:        make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.mu.RLock()
			for c := range h.connections {
				select {
				case c.send <- event:
				default:
					// Slow client; drop the event rather than block the feed.
				}
			}
			h.mu.RUnlock()
		case <-h.stop:
			h.mu.Lock()
			for c := range h.connections {
				close(c.send)
				delete(h.connections, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// HandleConnection upgrades the request and serves the feed until the client
// disconnects. Authentication happens before this in middleware.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &connection{conn: ws, send: make(chan FeedEvent, 64)}
	h.mu.Lock()
	h.connections[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) readPump(c *connection) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Feed connection closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(c *connection) {
	h.mu.Lock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(event FeedEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Feed broadcast channel full, dropping event", zap.String("type", event.Type))
	}
}

// ConnectionCount returns the number of connected feed clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}
