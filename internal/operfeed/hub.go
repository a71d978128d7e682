// Package operfeed fans operator notices out to connected operators over
// websocket. Extension removals and other operationally notable events
// end up here in addition to the structured log.
package operfeed

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/k4bek4be/unrealircd/internal/logging"
)

// Notice is the JSON payload pushed to operators.
type Notice struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Hub accepts operator websocket connections and broadcasts notices.
// Unlike the registries it is reachable from connection goroutines, so
// it carries its own lock.
type Hub struct {
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an operator notice hub.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		log: log.Sub("operfeed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection subscribed
// until the peer closes it. Operators only receive; inbound messages are
// discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("operator connected")

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// Noticef broadcasts a formatted notice to every connected operator.
func (h *Hub) Noticef(format string, args ...any) {
	n := Notice{Time: time.Now().UTC(), Text: fmt.Sprintf(format, args...)}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(n); err != nil {
			h.log.Debug().Err(err).Msg("dropping stale operator connection")
			h.drop(c)
		}
	}
}

// Count returns the number of connected operators.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every operator.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"))
		c.Close()
	}
}
