package app

import (
	"encoding/json"
	"net/http"
	"time"

	"qclctl/internal/journal"
	"qclctl/internal/logger"
	"qclctl/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub broadcasts every recorded exchange to the connected websocket clients
// as a JSON text frame. A client that falls behind loses frames.
type Hub struct {
	clients *xsync.MapOf[string, *wsClient]
	log     logger.Logger
}

var _ protocol.Recorder = (*Hub)(nil)

// NewHub returns a hub without clients.
func NewHub(l logger.Logger) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	return &Hub{
		clients: xsync.NewMapOf[string, *wsClient](),
		log:     l.With("component", "hub"),
	}
}

// Record broadcasts ex. It never blocks on a client.
func (h *Hub) Record(ex protocol.Exchange) {
	if h.clients.Size() == 0 {
		return
	}
	msg, err := json.Marshal(journal.FromExchange(ex))
	if err != nil {
		h.log.Error("failed to encode exchange", "error", err)
		return
	}
	h.clients.Range(func(id string, c *wsClient) bool {
		select {
		case c.send <- msg:
		case <-c.done:
		default:
			h.log.Warn("stream client too slow, frame dropped", "client", id)
		}
		return true
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return h.clients.Size() }

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	id := uuid.NewString()
	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.clients.Store(id, c)
	h.log.Info("stream client connected", "client", id, "remote", r.RemoteAddr)

	go h.writeLoop(id, c)
	go func() {
		defer func() {
			h.clients.Delete(id)
			close(c.done)
			if err := conn.Close(); err != nil {
				h.log.Debug("failed to close websocket", "client", id, "error", err)
			}
			h.log.Info("stream client disconnected", "client", id)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writeLoop(id string, c *wsClient) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("stream write failed", "client", id, "error", err)
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clients.Range(func(_ string, c *wsClient) bool {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		_ = c.conn.Close()
		return true
	})
}
