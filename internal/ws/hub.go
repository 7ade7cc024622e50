package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
)

// Hub fans security events out to every observer connection of a user
type Hub struct {
	clients    map[*Client]bool
	users      map[string]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stop       sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub; call Run to serve it
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done. On return every observer's send
// channel is closed and later registrations are refused.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToUser(event)
		}
	}
}

func (h *Hub) shutdown() {
	h.stop.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			h.dropLocked(client)
		}
	})
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds an observer. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes an observer; it never blocks on a stopped hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.users[client.userID] == nil {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		h.dropLocked(client)
	}
}

func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client)
	delete(h.users[client.userID], client)
	if len(h.users[client.userID]) == 0 {
		delete(h.users, client.userID)
	}
	close(client.send)
}

func (h *Hub) broadcastToUser(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.users[event.UserID]
	if clients == nil {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	for client := range clients {
		select {
		case client.send <- message:
		default:
			// slow observer
			h.dropLocked(client)
		}
	}
}

// BroadcastToUser queues an event without blocking; it is dropped when the hub is saturated
func (h *Hub) BroadcastToUser(userID string, eventType EventType, data interface{}) {
	select {
	case h.broadcast <- newEvent(userID, eventType, data):
	default:
	}
}

func (h *Hub) ConnectedClients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.users[userID])
}

// EventRecorder appends to the security log
type EventRecorder interface {
	Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error)
}

// Notifier records security events and pushes each stored event to the
// user's observers.
type Notifier struct {
	events EventRecorder
	hub    *Hub
}

var _ EventRecorder = (*Notifier)(nil)

// NewNotifier wraps events so every stored event reaches the hub
func NewNotifier(events EventRecorder, hub *Hub) *Notifier {
	return &Notifier{events: events, hub: hub}
}

func (n *Notifier) Record(ctx context.Context, userID string, typ domain.EventType, description string, details map[string]any) (domain.SecurityEvent, error) {
	event, err := n.events.Record(ctx, userID, typ, description, details)
	if err != nil {
		return event, err
	}
	n.hub.BroadcastToUser(userID, EventSecurity, event)
	return event, nil
}
