package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// ProjectChannel names a project's broadcast channel.
func ProjectChannel(projectID string) string {
	return "project:" + projectID
}

// UserChannel names a user's personal channel.
func UserChannel(userID string) string {
	return "user:" + userID
}

// Conn is the subset of the WebSocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket client. A client may hold any
// number of channel subscriptions; the personal channel is added at
// registration and kept for the life of the connection.
type Client struct {
	ID     string
	UserID string
	Conn   Conn

	writeMu sync.Mutex
}

// Send writes one text message to the client. The underlying connection does
// not tolerate concurrent writers, so every write to a registered client must
// go through here.
func (c *Client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// SendJSON marshals the payload and sends it.
func (c *Client) SendJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Hub manages WebSocket connections and channel fan-out. Delivery is
// best-effort and at-most-once per subscriber; a failed write is logged and
// dropped.
type Hub struct {
	clients    map[string]*Client         // clientID -> Client
	channels   map[string]map[string]bool // channel -> set of clientIDs
	register   chan *Client
	unregister chan *Client
	publish    chan *Envelope
	done       chan struct{}
	mu         sync.RWMutex
}

// Envelope is one outbound event on one channel.
type Envelope struct {
	Channel string
	Payload any
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *Envelope, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case env := <-h.publish:
			h.handlePublish(env)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.channels = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.addSubscription(client.ID, UserChannel(client.UserID))
	log.Printf("[hub] Client %s (user %s) registered", client.ID, client.UserID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	for channel := range h.channels {
		h.dropSubscription(client.ID, channel)
	}
	log.Printf("[hub] Client %s (user %s) unregistered", client.ID, client.UserID)
}

func (h *Hub) handlePublish(env *Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(env.Payload)
	if err != nil {
		log.Printf("[hub] Failed to marshal event: %v", err)
		return
	}

	for clientID := range h.channels[env.Channel] {
		if client, ok := h.clients[clientID]; ok {
			h.sendToClient(client, data)
		}
	}
}

func (h *Hub) sendToClient(client *Client, data []byte) {
	if err := client.Send(data); err != nil {
		log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
	}
}

// caller must hold mu
func (h *Hub) addSubscription(clientID, channel string) {
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]bool)
	}
	h.channels[channel][clientID] = true
}

// caller must hold mu
func (h *Hub) dropSubscription(clientID, channel string) {
	if h.channels[channel] == nil {
		return
	}
	delete(h.channels[channel], clientID)
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
}

// Register adds a client to the hub and subscribes it to its personal
// channel.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and all of its subscriptions.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish queues an event for every subscriber of the channel.
func (h *Hub) Publish(channel string, payload any) {
	h.publish <- &Envelope{
		Channel: channel,
		Payload: payload,
	}
}

// Subscribe adds a channel subscription for a connected client.
func (h *Hub) Subscribe(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	h.addSubscription(clientID, channel)
	log.Printf("[hub] Client %s subscribed to %s", clientID, channel)
}

// Unsubscribe drops one channel subscription.
func (h *Hub) Unsubscribe(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	h.dropSubscription(clientID, channel)
	log.Printf("[hub] Client %s unsubscribed from %s", clientID, channel)
}

// GetClient returns a client by ID.
func (h *Hub) GetClient(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
