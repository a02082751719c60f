package ws

import (
	"testing"
)

func newTestClient(id, roomID string) *Client {
	return &Client{
		conn:    &safeConn{},
		Message: make(chan *WSMessage, 4),
		ID:      id,
		RoomID:  roomID,
		closed:  make(chan struct{}),
	}
}

func TestAddClientCounts(t *testing.T) {
	rm := NewRoomManager()

	if got := rm.AddClient(newTestClient("c1", "r1")); got != 1 {
		t.Errorf("first add: count = %d, want 1", got)
	}
	if got := rm.AddClient(newTestClient("c2", "r1")); got != 2 {
		t.Errorf("second add: count = %d, want 2", got)
	}

	// Same id again does not double-count.
	if got := rm.AddClient(newTestClient("c2", "r1")); got != 2 {
		t.Errorf("duplicate add: count = %d, want 2", got)
	}
}

func TestRemoveClientDeletesEmptyRoom(t *testing.T) {
	rm := NewRoomManager()
	c1 := newTestClient("c1", "r1")
	c2 := newTestClient("c2", "r1")
	rm.AddClient(c1)
	rm.AddClient(c2)

	if remaining := rm.RemoveClient(c1); remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
	if !c1.IsClosed() {
		t.Error("removed client not closed")
	}
	if _, ok := rm.GetRoom("r1"); !ok {
		t.Fatal("room gone while a client remains")
	}

	if remaining := rm.RemoveClient(c2); remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if _, ok := rm.GetRoom("r1"); ok {
		t.Error("empty room not deleted")
	}
}

func TestRemoveClientUnknownRoom(t *testing.T) {
	rm := NewRoomManager()
	cl := newTestClient("c1", "ghost")

	if remaining := rm.RemoveClient(cl); remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if !cl.IsClosed() {
		t.Error("client not closed")
	}
}

func TestBroadcastToRoom(t *testing.T) {
	rm := NewRoomManager()
	c1 := newTestClient("c1", "r1")
	c2 := newTestClient("c2", "r1")
	other := newTestClient("c3", "r2")
	rm.AddClient(c1)
	rm.AddClient(c2)
	rm.AddClient(other)

	msg := NewRoomClosed("r1")
	if err := rm.BroadcastToRoom(msg); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	for _, cl := range []*Client{c1, c2} {
		select {
		case got := <-cl.Message:
			if got.Type != RoomClosed {
				t.Errorf("client %s: type = %q, want %q", cl.ID, got.Type, RoomClosed)
			}
		default:
			t.Errorf("client %s received nothing", cl.ID)
		}
	}

	select {
	case <-other.Message:
		t.Error("client in another room received the broadcast")
	default:
	}
}

func TestBroadcastToUnknownRoom(t *testing.T) {
	rm := NewRoomManager()

	if err := rm.BroadcastToRoom(NewRoomClosed("ghost")); err != ErrRoomNotFound {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestBroadcastSkipsFullBuffers(t *testing.T) {
	rm := NewRoomManager()
	cl := newTestClient("c1", "r1")
	rm.AddClient(cl)

	for i := 0; i < cap(cl.Message); i++ {
		cl.Message <- NewRoomClosed("r1")
	}

	// Must not block.
	if err := rm.BroadcastToRoom(NewRoomClosed("r1")); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}
}

func TestDisconnectAll(t *testing.T) {
	rm := NewRoomManager()
	c1 := newTestClient("c1", "r1")
	c2 := newTestClient("c2", "r2")
	rm.AddClient(c1)
	rm.AddClient(c2)

	rm.DisconnectAll()

	if !c1.IsClosed() || !c2.IsClosed() {
		t.Error("clients not closed")
	}
	if _, ok := rm.GetRoom("r1"); ok {
		t.Error("room r1 survived DisconnectAll")
	}
	if count, ok := rm.GetRoomStats("r2"); ok || count != 0 {
		t.Errorf("stats after disconnect: count = %d, exists = %v", count, ok)
	}
}
