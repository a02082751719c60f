package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	maxFrameSize  = 32768
)

type Client struct {
	conn    *safeConn
	Message chan *WSMessage
	ID      string `json:"id"`
	RoomID  string `json:"roomId"`

	// Protection against double-close and race conditions
	closeOnce sync.Once
	closed    chan struct{} // signals when client is closed
}

func NewClient(conn *websocket.Conn, id, roomID string) *Client {
	return &Client{
		conn:    wrapConn(conn),
		Message: make(chan *WSMessage, 64),
		ID:      id,
		RoomID:  roomID,
		closed:  make(chan struct{}),
	}
}

// Close is safe to call from any goroutine. Message is never closed;
// senders race with teardown, so delivery gates on the closed channel
// and stragglers land in the buffer unread.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) ReadMessage(core *Core) {
	defer func() {
		core.Unregister() <- c
	}()

	_ = c.conn.RefreshReadDeadline()

	c.conn.SetPongHandler(func(string) error {
		return c.conn.RefreshReadDeadline()
	})

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			return
		}

		if len(raw) == 0 {
			continue
		}

		if len(raw) > maxFrameSize {
			log.Printf("frame too large from client %s: %d bytes", c.ID, len(raw))
			continue
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.send(NewError(c.RoomID, "malformed frame"))
			continue
		}

		c.handleFrame(core, frame)
	}
}

func (c *Client) handleFrame(core *Core, frame ClientFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch frame.Type {
	case IntentHandRaise:
		if err := core.intents.SetHandRaised(ctx, c.RoomID, c.ID, true); err != nil {
			c.send(NewError(c.RoomID, "could not raise hand"))
		}

	case IntentHandLower:
		if err := core.intents.SetHandRaised(ctx, c.RoomID, c.ID, false); err != nil {
			c.send(NewError(c.RoomID, "could not lower hand"))
		}

	case IntentMuteSet:
		var payload MutePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.send(NewError(c.RoomID, "malformed frame"))
			return
		}
		if err := core.intents.UpdateMuteState(ctx, c.RoomID, c.ID, payload.IsMuted); err != nil {
			c.send(NewError(c.RoomID, "could not update mute state"))
		}

	case IntentYTSync:
		var payload YTSyncPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.send(NewError(c.RoomID, "malformed frame"))
			return
		}
		// Relayed to the room as-is; playback state lives on clients.
		msg := NewYTSync(c.RoomID, payload.VideoID)
		select {
		case core.Broadcast() <- msg:
		case <-c.closed:
		}

	default:
		c.send(NewError(c.RoomID, "unknown frame type"))
	}
}

func (c *Client) send(msg *WSMessage) {
	if c.IsClosed() {
		return
	}
	select {
	case c.Message <- msg:
	default:
	}
}

func (c *Client) WriteMessage() {
	defer c.Close()

	// Ping ticker to keep connection alive
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.Message:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error (client %s): %v", c.ID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage); err != nil {
				return
			}

		case <-c.closed:
			_ = c.conn.WriteControl(websocket.CloseMessage)
			return
		}
	}
}
