// Package hub fans reservation snapshots out to connected WebSocket
// observers.  The observer set is the one piece of in-memory shared state
// in the service; a single mutex guards connect, disconnect and broadcast
// so a reader never sees a half-removed entry.  Delivery is best-effort:
// an observer whose write fails or times out is closed and dropped without
// affecting the rest.
package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds every frame write.  An observer that stops reading
// eventually fills its socket buffers; without a deadline the blocked
// write would hold the hub lock and stall every other observer and the
// booking path behind it.
var writeWait = 10 * time.Second

// Hub holds the set of connected observers.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// Subscribe evaluates the snapshot, sends it to the connection and adds
// the connection to the observer set, all under the hub lock.  Running
// the fetch inside the lock means no broadcast can commit between the
// snapshot read and the subscription, so the first frame an observer
// receives is never older than any frame that follows it.
func (h *Hub) Subscribe(conn *websocket.Conn, snapshot func() ([]byte, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	frame, err := snapshot()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return err
	}
	h.conns[conn] = true
	return nil
}

// Unsubscribe removes the connection from the set.  Closing the
// connection is the caller's job.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Broadcast pushes one frame to every observer.  Observers whose write
// fails or exceeds the deadline are closed and removed.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Count reports how many observers are connected.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
