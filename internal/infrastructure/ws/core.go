package ws

import (
	"context"
	"log"
	"time"

	"github.com/amachi/voicedeck/internal/domain"
)

// Intents is the slice of the role coordinator reachable from
// connected clients.
type Intents interface {
	SetHandRaised(ctx context.Context, roomID, uid string, raised bool) error
	UpdateMuteState(ctx context.Context, roomID, uid string, isMuted bool) error
}

type Metrics interface {
	SubscriberConnected()
	SubscriberDisconnected()
}

type Core struct {
	roomMgr    *RoomManager
	register   chan *Client
	unregister chan *Client
	broadcast  chan *WSMessage
	stop       chan struct{}

	store   domain.RoomStateStore
	intents Intents
	metrics Metrics

	// Owned by the Run goroutine.
	subscriptions map[string]domain.UnsubscribeFunc
}

func NewCore(store domain.RoomStateStore, intents Intents, metrics Metrics) *Core {
	return &Core{
		roomMgr:       NewRoomManager(),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *WSMessage, 256),
		stop:          make(chan struct{}),
		store:         store,
		intents:       intents,
		metrics:       metrics,
		subscriptions: make(map[string]domain.UnsubscribeFunc),
	}
}

func (c *Core) Run() {
	for {
		select {
		case cl := <-c.register:
			count := c.roomMgr.AddClient(cl)
			if c.metrics != nil {
				c.metrics.SubscriberConnected()
			}

			if count == 1 {
				// First client in the room attaches the store
				// subscription; its initial snapshot reaches the
				// client through the broadcast path.
				c.subscriptions[cl.RoomID] = c.store.Subscribe(cl.RoomID, c.onStateChange(cl.RoomID))
				continue
			}

			// Later clients get the current snapshot directly.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				state, err := c.store.Read(ctx, cl.RoomID)
				if err != nil {
					cl.send(NewRoomClosed(cl.RoomID))
					return
				}
				cl.send(NewRoomState(cl.RoomID, state.Clone().Normalize()))
			}()

		case cl := <-c.unregister:
			remaining := c.roomMgr.RemoveClient(cl)
			if c.metrics != nil {
				c.metrics.SubscriberDisconnected()
			}

			if remaining == 0 {
				if unsub, ok := c.subscriptions[cl.RoomID]; ok {
					unsub()
					delete(c.subscriptions, cl.RoomID)
				}
			}

		case msg := <-c.broadcast:
			if err := c.roomMgr.BroadcastToRoom(msg); err != nil {
				log.Printf("broadcast error: %v", err)
			}

		case <-c.stop:
			for roomID, unsub := range c.subscriptions {
				unsub()
				delete(c.subscriptions, roomID)
			}
			c.roomMgr.DisconnectAll()
			return
		}
	}
}

// onStateChange translates store pushes into room-scoped frames. A nil
// state means the room document was deleted.
func (c *Core) onStateChange(roomID string) func(*domain.RoomState) {
	return func(state *domain.RoomState) {
		var msg *WSMessage
		if state == nil {
			msg = NewRoomClosed(roomID)
		} else {
			msg = NewRoomState(roomID, state)
		}

		select {
		case c.broadcast <- msg:
		default:
			log.Printf("broadcast buffer full, dropping state push for room %s", roomID)
		}
	}
}

func (c *Core) Register() chan<- *Client {
	return c.register
}

func (c *Core) Unregister() chan<- *Client {
	return c.unregister
}

func (c *Core) Broadcast() chan<- *WSMessage {
	return c.broadcast
}

func (c *Core) Shutdown() {
	close(c.stop)
}

func (c *Core) RoomManager() *RoomManager {
	return c.roomMgr
}
