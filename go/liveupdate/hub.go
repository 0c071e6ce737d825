// Package liveupdate fans every message posted on the bus out to all live
// WebSocket clients. Clients attach to a shared durable queue consumer; no
// replay is performed for clients that connect later.
package liveupdate

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Maximum time we'll wait for a write we initiate to complete.
const writeTimeout = 10 * time.Second

// conn is the subset of *websocket.Conn the hub relies on.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Hub is the registry of live client connections. It is mutated by the
// accept path, by each client's ping loop on close, and by Broadcast on a
// failed send, so all access goes through the mutex.
type Hub struct {
	mu      sync.Mutex
	clients map[conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[conn]struct{})}
}

func (h *Hub) add(c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// remove drops |c| from the registry, reporting whether it was present.
func (h *Hub) remove(c conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	var _, ok = h.clients[c]
	delete(h.clients, c)
	return ok
}

// Len returns the number of live clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends |payload| as a text frame to every registered client. A
// client whose send fails is closed and removed immediately, without waiting
// for its ping loop to notice, so it is absent before the next dispatch.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	var snapshot = make([]conn, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	for _, c := range snapshot {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(textMessage, payload); err != nil {
			log.WithField("err", err).Info("removing client after failed send")
			h.remove(c)
			_ = c.Close()
		}
	}
}

// closeAll closes every client and empties the registry.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}
