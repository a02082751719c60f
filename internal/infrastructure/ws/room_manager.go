package ws

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrRoomNotFound = errors.New("room not found")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
)

type WSRoom struct {
	ID      string             `json:"id"`
	Clients map[string]*Client `json:"clients"`

	mu sync.RWMutex
}

type RoomManager struct {
	rooms map[string]*WSRoom
	mu    sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*WSRoom),
	}
}

func (rm *RoomManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// AddClient returns the room's client count after the add.
func (rm *RoomManager) AddClient(cl *Client) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[cl.RoomID]
	if !ok {
		room = &WSRoom{
			ID:      cl.RoomID,
			Clients: make(map[string]*Client),
		}
		rm.rooms[cl.RoomID] = room
	}

	room.mu.Lock()
	if _, exists := room.Clients[cl.ID]; !exists {
		room.Clients[cl.ID] = cl
	}
	count := len(room.Clients)
	room.mu.Unlock()

	return count
}

// RemoveClient returns the room's remaining client count.
func (rm *RoomManager) RemoveClient(cl *Client) int {
	rm.mu.Lock()
	room, ok := rm.rooms[cl.RoomID]
	rm.mu.Unlock()

	if !ok {
		cl.Close()
		return 0
	}

	room.mu.Lock()
	delete(room.Clients, cl.ID)
	remaining := len(room.Clients)
	room.mu.Unlock()

	if remaining == 0 {
		rm.mu.Lock()
		room.mu.RLock()
		if len(room.Clients) == 0 {
			delete(rm.rooms, cl.RoomID)
		}
		room.mu.RUnlock()
		rm.mu.Unlock()
	}

	cl.Close()
	return remaining
}

func (rm *RoomManager) GetRoom(roomID string) (*WSRoom, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	r, ok := rm.rooms[roomID]
	return r, ok
}

func (rm *RoomManager) BroadcastToRoom(msg *WSMessage) error {
	rm.mu.RLock()
	room, ok := rm.rooms[msg.RoomID]
	rm.mu.RUnlock()

	if !ok {
		return ErrRoomNotFound
	}

	// Create snapshot of clients to avoid holding lock during broadcast
	room.mu.RLock()
	clients := make([]*Client, 0, len(room.Clients))
	for _, cl := range room.Clients {
		clients = append(clients, cl)
	}
	room.mu.RUnlock()

	for _, cl := range clients {
		if cl.IsClosed() {
			continue
		}

		select {
		case cl.Message <- msg:
		default:
			// Client buffer full - drop message and log
			log.Printf("client %s buffer full, dropping message", cl.ID)
		}
	}

	return nil
}

func (rm *RoomManager) DisconnectAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, room := range rm.rooms {
		room.mu.Lock()
		for _, cl := range room.Clients {
			cl.Close()
		}
		room.mu.Unlock()
	}

	rm.rooms = make(map[string]*WSRoom)
}

func (rm *RoomManager) GetRoomStats(roomID string) (clientCount int, exists bool) {
	rm.mu.RLock()
	room, ok := rm.rooms[roomID]
	rm.mu.RUnlock()

	if !ok {
		return 0, false
	}

	room.mu.RLock()
	defer room.mu.RUnlock()

	return len(room.Clients), true
}
