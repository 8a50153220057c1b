package transport

import (
	"fmt"
	"log/slog"
	"sync"

	"converse/errors"
)

// Hub is the live push surface. It maps connection ids to clients and
// group ids to the connections subscribed to their channel. Everything
// here is best effort: an unreachable or slow peer costs a log line,
// never an error up the persistence path.
type Hub struct {
	log      *slog.Logger
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:      log,
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Unregister drops the connection and every channel subscription it
// holds. Safe to call for an unknown id.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connectionID)
	for groupID, subscribers := range h.channels {
		delete(subscribers, connectionID)
		if len(subscribers) == 0 {
			delete(h.channels, groupID)
		}
	}
}

func (h *Hub) AddSubscriber(connectionID, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.channels[groupID]
	if !ok {
		subscribers = make(map[string]struct{})
		h.channels[groupID] = subscribers
	}
	subscribers[connectionID] = struct{}{}
}

func (h *Hub) RemoveSubscriber(connectionID, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.channels[groupID]
	if !ok {
		return
	}
	delete(subscribers, connectionID)
	if len(subscribers) == 0 {
		delete(h.channels, groupID)
	}
}

// Unicast pushes one frame to one connection. A frame dropped on a
// full buffer is logged and forgotten.
func (h *Hub) Unicast(connectionID, event string, payload any) error {
	data, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return errors.ErrConnectionGone
	}

	if !client.enqueue(data) {
		h.log.Warn("push dropped, send buffer full", "connection", connectionID, "event", event)
	}
	return nil
}

// Broadcast pushes one frame to every connection subscribed to the
// group's channel.
func (h *Hub) Broadcast(groupID, event string, payload any) error {
	data, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connectionID := range h.channels[groupID] {
		client, ok := h.clients[connectionID]
		if !ok {
			continue
		}
		if !client.enqueue(data) {
			h.log.Warn("broadcast dropped for one peer", "connection", connectionID, "group", groupID)
		}
	}
	return nil
}
