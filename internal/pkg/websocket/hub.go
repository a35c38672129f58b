package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub fans out chat events to clients subscribed to a session room
type Hub struct {
	// Registered clients organized by chat session ID
	clients map[int64]map[*Client]bool

	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	logger zerolog.Logger
}

// Event is a server-pushed frame for one chat session
type Event struct {
	// Type of event: "message", "typing"
	Type string `json:"type"`

	SessionID int64 `json:"sessionId"`

	// Payload is the serialized chat message or status
	Payload interface{} `json:"payload,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[int64]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.sessionID]; !ok {
		h.clients[client.sessionID] = make(map[*Client]bool)
	}
	h.clients[client.sessionID][client] = true

	h.logger.Debug().
		Int64("sessionID", client.sessionID).
		Str("identityID", client.identityID).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops a client; caller holds h.mu
func (h *Hub) removeLocked(client *Client) {
	room, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}

	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.clients, client.sessionID)
	}

	h.logger.Debug().
		Int64("sessionID", client.sessionID).
		Str("identityID", client.identityID).
		Msg("Client unregistered")
}

func (h *Hub) broadcastEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Int64("sessionID", event.SessionID).Msg("Failed to marshal event for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[event.SessionID] {
		select {
		case client.send <- data:
		default:
			// Slow consumer
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.clients {
		for client := range room {
			h.removeLocked(client)
		}
	}
}

// Publish queues an event for a session room. It never blocks the caller for long:
// when the hub is saturated the event is dropped and logged.
func (h *Hub) Publish(sessionID int64, eventType string, payload interface{}) {
	event := &Event{
		Type:      eventType,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.broadcast <- event:
	case <-h.done:
	case <-time.After(time.Second):
		h.logger.Warn().Int64("sessionID", sessionID).Str("type", eventType).Msg("Hub saturated, dropping event")
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of subscribers for a session
func (h *Hub) ClientCount(sessionID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
