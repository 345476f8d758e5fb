package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"realtime_chat_service/pkg/logger"
)

const sendBuffer = 64

// Session one live websocket connection bound to a user. The read loop
// processes actions one at a time in arrival order; the writer goroutine
// drains the send channel so a slow client never blocks the backplane.
type Session struct {
	ID     string
	UserID string

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	joined map[string]context.CancelFunc
	closed bool
}

// NewSession create a session for an authenticated connection
func NewSession(conn *websocket.Conn, userID string) *Session {
	return &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		joined: make(map[string]context.CancelFunc),
	}
}

// WriteLoop single writer for the connection, run as its own goroutine
func (s *Session) WriteLoop() {
	for data := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Log.Errorf("write message error:", err)
			return
		}
	}
}

// Push queue a value for delivery. Returns false when the session is closed
// or the client is too slow to keep up.
func (s *Session) Push(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("push marshal error:", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		// client 跟不上,由呼叫端決定要不要斷線
		logger.Log.Warn("session send buffer full")
		return false
	}
}

// Joined check the session already joined a conversation group
func (s *Session) Joined(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[conversationID]
	return ok
}

// AddGroup record a joined conversation with its subscription cancel
func (s *Session) AddGroup(conversationID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return
	}
	if old, ok := s.joined[conversationID]; ok {
		old()
	}
	s.joined[conversationID] = cancel
}

// RemoveGroup leave one conversation group; unchecked, a user may always stop
// receiving events for a group they are in
func (s *Session) RemoveGroup(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.joined[conversationID]; ok {
		cancel()
		delete(s.joined, conversationID)
	}
}

// Groups snapshot of joined conversation ids
func (s *Session) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.joined))
	for id := range s.joined {
		ids = append(ids, id)
	}
	return ids
}

// Close cancel every subscription and stop the writer
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, cancel := range s.joined {
		cancel()
		delete(s.joined, id)
	}
	close(s.send)
}

// Drop close the underlying connection, which ends the read loop and runs
// the normal disconnect teardown
func (s *Session) Drop() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// Ping send a transport-level ping, used by the keepalive ticker
func (s *Session) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second))
}
