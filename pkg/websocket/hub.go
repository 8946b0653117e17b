package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/marcheroute/marcheroute/pkg/logger"
	"go.uber.org/zap"
)

// Message is the envelope pushed to browser map sessions.
type Message struct {
	Type      string      `json:"type"`
	Room      string      `json:"room,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Hub routes messages to connected clients grouped by room. Each room
// corresponds to one browser map session.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
}

// NewHub creates an empty hub. Run must be started for it to route traffic.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 64),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Broadcast queues a message for every client in the message's room. When
// Room is empty the message goes to all clients.
func (h *Hub) Broadcast(message Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	select {
	case h.broadcast <- message:
	default:
		logger.Warn("Websocket broadcast queue is full, dropping message",
			zap.String("type", message.Type),
			zap.String("room", message.Room),
		)
	}
}

// RoomSize returns the number of clients attached to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if client.room != "" {
		if h.rooms[client.room] == nil {
			h.rooms[client.room] = make(map[*Client]bool)
		}
		h.rooms[client.room][client] = true
	}

	logger.Debug("Websocket client connected",
		zap.String("room", client.room),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if room, ok := h.rooms[client.room]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.room)
		}
	}
	close(client.send)

	logger.Debug("Websocket client disconnected",
		zap.String("room", client.room),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) deliver(message Message) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0)
	if message.Room == "" {
		for client := range h.clients {
			targets = append(targets, client)
		}
	} else {
		for client := range h.rooms[message.Room] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- payload:
		default:
			// Slow consumer, drop it rather than block the hub
			h.mu.Lock()
			h.removeClientLocked(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeClientLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if room, ok := h.rooms[client.room]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.room)
		}
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}
