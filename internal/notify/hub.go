// Package notify fans out change events to connected clients.
//
// Events are fire-and-forget signals carrying only a topic name; consumers
// re-fetch on receipt. There is no delivery guarantee, persistence, or replay:
// a client that connects after an event missed it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// Topics emitted after successful mutations.
const (
	TopicReservations = "reservations_changed"
	TopicRooms        = "rooms_changed"
	TopicEquipment    = "equipment_changed"
)

// ErrQueueFull is returned when the broadcast queue is saturated and the
// event was dropped. Callers log it and move on; a publish failure never
// affects the mutation that triggered it.
var ErrQueueFull = errors.New("notify: broadcast queue full, event dropped")

type event struct {
	Event string `json:"event"`
}

// Hub maintains the set of connected clients and broadcasts topic events to
// all of them. Register/unregister/broadcast flow through channels consumed
// by a single Run loop, so the client set needs no locking in the hot path.
type Hub struct {
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates a hub. Run must be started for events to flow.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		clients:    make(map[*Client]struct{}),
	}
}

// Run processes hub events until the context is cancelled, then disconnects
// all clients. It is meant to run in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// Publish broadcasts a named, payload-free change event to every connected
// client. It never blocks: when the queue is full the event is dropped and
// ErrQueueFull returned.
func (h *Hub) Publish(topic string) error {
	message, err := json.Marshal(event{Event: topic})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- message:
		return nil
	default:
		h.logger.Warn("dropping change event", "topic", topic)
		return ErrQueueFull
	}
}

// add hands a client to the Run loop. After shutdown the loop no longer
// receives, so the hand-off must not block; the client is closed instead.
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		client.close()
		return false
	}
}

// drop unregisters a client whose connection ended. Safe to call after
// shutdown, when the Run loop has already disconnected everyone.
func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		client.close()
		return
	}
	h.clients[client] = struct{}{}
	h.logger.Debug("notification client connected", "clients", len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
	}
	h.logger.Debug("notification client disconnected", "clients", len(h.clients))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	recipients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		recipients = append(recipients, client)
	}
	h.mu.Unlock()

	for _, client := range recipients {
		// Non-blocking send: a slow client loses events rather than
		// stalling the broadcast for everyone else.
		select {
		case client.send <- message:
		default:
			h.logger.Warn("client send buffer full, skipping event")
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	close(h.done)
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
}
