// Package realtime keeps the live WebSocket connections of signed-in users
// and pushes notification payloads to them.
package realtime

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/anonto42/inkpress/backend/pkg/metrics"
)

var (
	// ErrAlreadySubscribed is returned when a connection that is already
	// bound to a topic tries to join again.
	ErrAlreadySubscribed = errors.New("connection already subscribed")
	// ErrClientClosed is returned when subscribing a disconnected client.
	ErrClientClosed = errors.New("connection closed")
)

// Hub maps user ids to their live connections. Each connection belongs to
// at most one user topic for its whole lifetime.
type Hub struct {
	mu     sync.Mutex
	topics map[uint]map[*Client]struct{}
	owners map[*Client]uint
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		topics: make(map[uint]map[*Client]struct{}),
		owners: make(map[*Client]uint),
		logger: logger,
	}
}

// Subscribe binds c to the topic of userID.
func (h *Hub) Subscribe(userID uint, c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.owners[c]; ok {
		return ErrAlreadySubscribed
	}
	if !c.markSubscribed() {
		return ErrClientClosed
	}

	conns, ok := h.topics[userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.topics[userID] = conns
	}
	conns[c] = struct{}{}
	h.owners[c] = userID
	metrics.LiveConnections.Inc()

	h.logger.Debug("live client subscribed", "client_id", c.ID(), "user_id", userID)
	return nil
}

// Unsubscribe removes c from its topic and closes its outbound queue.
// Calling it more than once, or for a client that never subscribed, is safe.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
	c.closeSend()
}

func (h *Hub) removeLocked(c *Client) {
	userID, ok := h.owners[c]
	if !ok {
		return
	}
	delete(h.owners, c)
	if conns := h.topics[userID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.topics, userID)
		}
	}
	metrics.LiveConnections.Dec()
	h.logger.Debug("live client unsubscribed", "client_id", c.ID(), "user_id", userID)
}

// Publish enqueues payload on every connection subscribed to userID and
// returns how many accepted it. It never blocks on a connection: one whose
// queue is full is dropped from the hub and its queue closed.
func (h *Hub) Publish(userID uint, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.topics[userID] {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		h.logger.Warn("dropping slow live client", "client_id", c.ID(), "user_id", userID)
		metrics.SlowClientDrops.Inc()
		h.removeLocked(c)
		c.closeSend()
	}
	if delivered > 0 {
		metrics.LivePushes.Add(float64(delivered))
	}
	return delivered
}

// Subscribers reports how many connections are bound to userID.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[userID])
}

// Close disconnects every subscribed client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.owners {
		h.removeLocked(c)
		c.closeSend()
	}
}
