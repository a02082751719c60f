package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// safeConn serializes writes to a single websocket connection. Gorilla
// allows one concurrent writer, and both the state feed and the ping
// ticker write, so every outbound frame funnels through here.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func wrapConn(c *websocket.Conn) *safeConn {
	return &safeConn{conn: c}
}

func (s *safeConn) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return s.conn.WriteJSON(v)
}

// WriteControl sends a control frame (ping, close) with the standard
// write deadline.
func (s *safeConn) WriteControl(messageType int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return s.conn.WriteMessage(messageType, nil)
}

// ReadMessage blocks on the next inbound frame. Reads are single-owner
// (the client's read loop) and need no lock.
func (s *safeConn) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

func (s *safeConn) RefreshReadDeadline() error {
	return s.conn.SetReadDeadline(time.Now().Add(readDeadline))
}

func (s *safeConn) SetPongHandler(h func(string) error) {
	s.conn.SetPongHandler(h)
}

func (s *safeConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
