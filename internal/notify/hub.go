// Package notify pushes refresh events to attached presentation terminals
// over websocket, so every open grid re-reads after a bulk pass or a row
// edit lands.
package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is one refresh notification. Scope names what changed ("records",
// "normalize", "recode", "export"); OF narrows it to one fabrication order
// when known.
type Event struct {
	Type  string    `json:"type"`
	Scope string    `json:"scope"`
	OF    string    `json:"of,omitempty"`
	At    time.Time `json:"at"`
}

// Hub maintains the set of attached terminals and fans events out to them.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates an empty hub. Call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		clients:    make(map[string]*Client),
	}
}

// Run drives the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.TerminalID]; ok {
				close(old.send)
			}
			h.clients[client.TerminalID] = client
			h.mu.Unlock()
			log.Printf("🖥️ Terminal attached: %s", client.TerminalID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.TerminalID]; ok {
				delete(h.clients, client.TerminalID)
				close(client.send)
				log.Printf("📴 Terminal detached: %s", client.TerminalID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					log.Printf("⚠️ Terminal %s not keeping up, dropping event", id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Refresh broadcasts a refresh event to every attached terminal.
func (h *Hub) Refresh(scope, of string) {
	event := Event{Type: "REFRESH", Scope: scope, OF: of, At: time.Now()}
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling refresh event: %v", err)
		return
	}
	h.broadcast <- msg
}

// Terminals returns the number of attached terminals.
func (h *Hub) Terminals() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
