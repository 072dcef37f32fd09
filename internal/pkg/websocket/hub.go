package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Hub tracks the live connections of each conversation so they can be counted
// and closed together on shutdown. Delivery itself goes through the realtime bus.
type Hub struct {
	// Registered clients organized by conversation ID
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "websocket").Logger(),
	}
}

// Run handles registrations until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.clients[client.conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.clients[client.conversationID] = room
	}
	room[client] = struct{}{}

	h.logger.Info().
		Str("conversation_id", client.conversationID.String()).
		Str("identity_id", client.identityID.String()).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.clients[client.conversationID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.clients, client.conversationID)
	}

	h.logger.Info().
		Str("conversation_id", client.conversationID.String()).
		Str("identity_id", client.identityID.String()).
		Msg("Client unregistered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.clients {
		for client := range room {
			client.close()
		}
		delete(h.clients, id)
	}
}

// Register adds client unless the hub has stopped
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client; it is a no-op once the hub has stopped
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientsCount returns the number of connected clients for a conversation
func (h *Hub) ClientsCount(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[conversationID])
}
