package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roach88/atelier/internal/engine"
	"github.com/roach88/atelier/internal/project"
)

const (
	// clientQueueSize bounds each observer's outbound buffer. A client
	// that falls this far behind is disconnected; it can reconnect and
	// resync from the snapshot frame.
	clientQueueSize = 256

	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one connected observer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans delta events out to connected observers.
//
// Ordering: Broadcast is only ever called under the lifecycle manager's
// lock, so events arrive here in mutation order; each client has a
// buffered queue drained by a single writer goroutine, so that order is
// preserved per connection. A client whose queue is full gets dropped
// instead of stalling or reordering everyone else.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Broadcast queues one event on every connected client.
func (h *Hub) Broadcast(ev engine.Delta) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("event not serializable", "kind", ev.Kind, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			slog.Warn("observer too slow, disconnecting", "client", id)
			delete(h.clients, id)
			cl.close()
		}
	}
}

// Clients reports how many observers are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl.id]; ok {
		delete(h.clients, cl.id)
		cl.close()
	}
	h.mu.Unlock()
}

// handleWS upgrades the connection and streams events. The first frame
// is always a full-state snapshot; registering and snapshotting happen
// inside one manager critical section so no delta can slip between
// them.
func handleWS(m *project.Manager, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		cl := &client{
			id:   uuid.NewString(),
			conn: ws,
			send: make(chan []byte, clientQueueSize),
		}

		err = m.Do(func(s *project.Session) (*engine.Change, error) {
			snapshot, err := json.Marshal(s.Engine().FullStateDelta())
			if err != nil {
				return nil, err
			}
			cl.send <- snapshot
			hub.add(cl)
			return nil, nil
		})
		if err != nil {
			slog.Error("websocket snapshot failed", "error", err)
			ws.Close()
			return
		}
		slog.Info("observer connected", "client", cl.id)

		go cl.writePump(hub)
		cl.readPump(hub)
	}
}

// writePump drains the client's queue onto the wire.
func (cl *client) writePump(hub *Hub) {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Info("observer write failed", "client", cl.id, "error", err)
			hub.remove(cl)
			return
		}
	}
}

// readPump discards inbound frames; observers are passive. It exists to
// notice the close handshake.
func (cl *client) readPump(hub *Hub) {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			break
		}
	}
	slog.Info("observer disconnected", "client", cl.id)
	hub.remove(cl)
}
