package ws

import (
	"sync"
	"testing"
)

func TestCloseDuringConcurrentSend(t *testing.T) {
	cl := newTestClient("c1", "r1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				cl.send(NewRoomClosed("r1"))
			}
		}()
	}

	cl.Close()
	wg.Wait()

	if !cl.IsClosed() {
		t.Fatal("client not closed")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cl := newTestClient("c1", "r1")
	cl.Close()
	cl.Close()

	if !cl.IsClosed() {
		t.Fatal("client not closed")
	}
}

func TestBroadcastToClosedClient(t *testing.T) {
	rm := NewRoomManager()
	cl := newTestClient("c1", "r1")
	rm.AddClient(cl)

	cl.Close()

	if err := rm.BroadcastToRoom(NewRoomClosed("r1")); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	select {
	case <-cl.Message:
		t.Error("closed client received a frame")
	default:
	}
}
