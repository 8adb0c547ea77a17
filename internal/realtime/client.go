package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// State is where a connection is in its lifecycle.
type State int

const (
	StateConnected State = iota
	StateSubscribed
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Client is one live WebSocket connection of an authenticated user.
type Client struct {
	id     string
	userID uint
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger

	mu    sync.Mutex
	state State
	send  chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		logger: logger.With("client_id", id, "user_id", userID),
		send:   make(chan []byte, sendBuffer),
	}
}

// ID is the connection id, unique per process.
func (c *Client) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) markSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return false
	}
	c.state = StateSubscribed
	return true
}

// enqueue adds payload to the outbound queue without blocking. It reports
// false when the queue is full or already closed.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return
	}
	c.state = StateDisconnected
	close(c.send)
}

type inbound struct {
	Type   string `json:"type"`
	UserID uint   `json:"userId"`
}

type reply struct {
	Type   string `json:"type"`
	UserID uint   `json:"userId,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) reply(r reply) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.enqueue(b)
}

// handle processes one client frame.
func (c *Client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(reply{Type: "error", Error: "invalid_json"})
		return
	}

	switch msg.Type {
	case "join-room":
		if msg.UserID != 0 && msg.UserID != c.userID {
			c.logger.Warn("join rejected, identity mismatch", "requested_user_id", msg.UserID)
			c.reply(reply{Type: "error", Error: "identity_mismatch"})
			return
		}
		if err := c.hub.Subscribe(c.userID, c); err != nil {
			if errors.Is(err, ErrAlreadySubscribed) {
				c.reply(reply{Type: "error", Error: "already_joined"})
			}
			return
		}
		c.reply(reply{Type: "joined", UserID: c.userID})
	default:
		c.reply(reply{Type: "error", Error: "unsupported_type"})
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("live connection read error", "error", err)
			}
			return
		}
		c.handle(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
