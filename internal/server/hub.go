// Package server exposes the session over websockets: a hub that fans events
// out to connected clients and an HTTP server that upgrades connections and
// dispatches client commands to the session.
package server

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emberfall-games/emberfall/internal/platform/timeouts"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// subscriber is one connected client. Writes are serialized per connection:
// gorilla/websocket allows at most one concurrent writer.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(timeouts.WebsocketWrite)); err != nil {
		return err
	}
	return s.conn.WriteJSON(env)
}

// Hub tracks connected clients by participant id and fans session events out
// to them. Delivery is best effort: a client that cannot be written to is
// dropped from the hub and its connection closed.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*subscriber)}
}

// Register attaches a connection to a participant id. A reconnect replaces
// the previous connection, which is closed.
func (h *Hub) Register(participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	previous := h.subscribers[participantID]
	h.subscribers[participantID] = &subscriber{conn: conn}
	h.mu.Unlock()

	if previous != nil {
		_ = previous.conn.Close()
	}
}

// Unregister detaches a connection. The subscriber is only removed when it
// still owns the given connection, so a reconnect that already replaced it
// is left alone.
func (h *Hub) Unregister(participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.subscribers[participantID]; ok && current.conn == conn {
		delete(h.subscribers, participantID)
	}
	h.mu.Unlock()
}

// Count returns the number of attached connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// BroadcastAll sends an event to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.mu.Lock()
	targets := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		targets[id] = sub
	}
	h.mu.Unlock()

	env := Envelope{Type: event, Payload: payload}
	for id, sub := range targets {
		if err := sub.send(env); err != nil {
			log.Printf("[HUB] drop %s: %v", id, err)
			h.drop(id, sub)
		}
	}
}

// SendTo sends an event to a single client. Unknown ids are ignored.
func (h *Hub) SendTo(participantID, event string, payload any) {
	h.mu.Lock()
	sub, ok := h.subscribers[participantID]
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := sub.send(Envelope{Type: event, Payload: payload}); err != nil {
		log.Printf("[HUB] drop %s: %v", participantID, err)
		h.drop(participantID, sub)
	}
}

func (h *Hub) drop(participantID string, sub *subscriber) {
	h.mu.Lock()
	if current, ok := h.subscribers[participantID]; ok && current == sub {
		delete(h.subscribers, participantID)
	}
	h.mu.Unlock()
	_ = sub.conn.Close()
}
