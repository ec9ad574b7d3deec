package events

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub broadcasts block-change events to connected websocket clients.
// A client that fails a write is dropped; there is no queueing or
// replay — clients reconcile by re-fetching the document.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// Envelope is the wire shape of a pushed event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// Register adds a client connection. The hub owns writes; the caller
// keeps reading (and discarding) messages to detect disconnects.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
}

// Unregister removes and closes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[conn] {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// Emit implements Emitter: fan the event out to every client.
func (h *Hub) Emit(_ context.Context, event string, data any) {
	msg := Envelope{Event: event, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("events: dropping client: %v", err)
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
