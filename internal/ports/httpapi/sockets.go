package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fillblank/internal/app"
	"fillblank/internal/ports"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 10 * time.Second
	pongWait     = 3 * pingInterval
	sendBuffer   = 64
)

// client is one user's websocket. Only the write pump writes to conn.
type client struct {
	userID string
	conn   *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues a message, false if the client is gone or too far behind.
func (c *client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Sockets tracks the websocket of each user per lobby and delivers lobby
// events to them. A user has at most one socket; a new one replaces the old.
type Sockets struct {
	logger runtime.Logger

	mu      sync.RWMutex
	lobbies map[string]map[string]*client
}

func NewSockets(logger runtime.Logger) *Sockets {
	return &Sockets{logger: logger, lobbies: make(map[string]map[string]*client)}
}

func (s *Sockets) attach(code, userID string, conn *websocket.Conn) *client {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	users, ok := s.lobbies[code]
	if !ok {
		users = make(map[string]*client)
		s.lobbies[code] = users
	}
	old := users[userID]
	users[userID] = c
	s.mu.Unlock()

	if old != nil {
		old.close()
	}
	go c.writePump()
	return c
}

// detach drops c if it is still the user's socket and reports whether it was.
func (s *Sockets) detach(code string, c *client) bool {
	s.mu.Lock()
	current := false
	if users, ok := s.lobbies[code]; ok && users[c.userID] == c {
		delete(users, c.userID)
		if len(users) == 0 {
			delete(s.lobbies, code)
		}
		current = true
	}
	s.mu.Unlock()
	c.close()
	return current
}

// Kick closes the user's socket, if any.
func (s *Sockets) Kick(code, userID string) {
	s.mu.RLock()
	c := s.lobbies[code][userID]
	s.mu.RUnlock()
	if c != nil {
		s.detach(code, c)
	}
}

// Connected reports whether userID has a socket open on the lobby.
func (s *Sockets) Connected(code, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[code][userID]
	return ok
}

// Deliver implements ports.EventSink. Users with no socket miss the events and
// catch up from the lobby view when they connect. A socket that cannot keep up
// is closed for the same reason.
func (s *Sockets) Deliver(ctx context.Context, code string, events []app.Event) error {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.lobbies[code]))
	for _, c := range s.lobbies[code] {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, ev := range events {
		for _, c := range clients {
			if !ev.VisibleTo(c.userID) {
				continue
			}
			msg, err := json.Marshal(ev.MessageFor(c.userID))
			if err != nil {
				return fmt.Errorf("failed to marshal %s event: %w", ev.Kind, err)
			}
			if !c.enqueue(msg) && s.detach(code, c) {
				s.logger.Warn("Deliver: Lobby %s dropped the slow socket of %s", code, c.userID)
			}
		}
	}
	return nil
}

// sendTo queues a message for one socket.
func (s *Sockets) sendTo(c *client, msg app.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Socket: Failed to marshal %s message: %v", msg.Event, err)
		return
	}
	c.enqueue(data)
}

var _ ports.EventSink = (*Sockets)(nil)
