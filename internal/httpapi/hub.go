package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/transcript"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local push-to-talk clients only; the server binds to the configured port
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan transcript.Line
}

// Hub broadcasts transcript lines to websocket subscribers. A subscriber
// that falls sendBuffer lines behind is disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	now     func() time.Time
	logger  zerolog.Logger
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		now:     time.Now,
		logger:  observability.Component("httpapi.hub"),
	}
}

// Show broadcasts one line; it never blocks
func (h *Hub) Show(speaker, text string) {
	line := transcript.Line{Speaker: speaker, Text: text, At: h.now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- line:
		default:
			h.logger.Warn().Msg("Transcript subscriber too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// ServeHTTP upgrades the request and streams lines until the peer leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	c := &client{conn: conn, send: make(chan transcript.Line, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Transcript subscriber connected")

	go h.writeLoop(c)

	// Inbound messages are ignored; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for line := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(line); err != nil {
			h.remove(c)
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
