// Package notify pushes ride notifications to connected riders and drivers
// over websockets.
package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type outbound struct {
	userID  string
	payload []byte
}

// Hub tracks live connections per user and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	publish    chan outbound
	done       chan struct{}

	log *logrus.Entry
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan outbound, 256),
		done:       make(chan struct{}),
		log:        log.WithField("component", "notify_hub"),
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.mu.Unlock()
			h.log.WithField("user_id", c.userID).Debug("websocket client registered")

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.publish:
			h.deliver(msg)
		}
	}
}

// Publish queues payload for every connection of userID. It never blocks;
// when the queue is full the message is dropped and logged.
func (h *Hub) Publish(userID string, payload []byte) {
	select {
	case h.publish <- outbound{userID: userID, payload: payload}:
	default:
		h.log.WithField("user_id", userID).Warn("notification queue full, dropping message")
	}
}

// Connected reports how many live connections userID has.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients[msg.userID] {
		select {
		case c.send <- msg.payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithField("user_id", c.userID).Warn("websocket client too slow, disconnecting")
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}
