// Package statestore provides the realtime room-state document stores:
// a durable MongoDB implementation and an in-memory one for tests and
// single-node development. Both push the full normalized document to
// every room subscriber after each write.
package statestore

import (
	"sync"

	"github.com/amachi/voicedeck/internal/domain"
)

// notifier is the per-room subscriber registry shared by the store
// implementations. Callbacks run synchronously on the writer's
// goroutine and receive nil when the room document was deleted;
// subscribers that need to block must hand off themselves.
type notifier struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(*domain.RoomState)
}

func newNotifier() *notifier {
	return &notifier{
		subs: make(map[string]map[uint64]func(*domain.RoomState)),
	}
}

func (n *notifier) subscribe(roomID string, fn func(*domain.RoomState)) domain.UnsubscribeFunc {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	room, ok := n.subs[roomID]
	if !ok {
		room = make(map[uint64]func(*domain.RoomState))
		n.subs[roomID] = room
	}
	room[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if room, ok := n.subs[roomID]; ok {
			delete(room, id)
			if len(room) == 0 {
				delete(n.subs, roomID)
			}
		}
	}
}

// publish fans state out to every subscriber of roomID. Each callback
// gets its own deep copy so one slow consumer cannot corrupt another's
// view.
func (n *notifier) publish(roomID string, state *domain.RoomState) {
	n.mu.RLock()
	fns := make([]func(*domain.RoomState), 0, len(n.subs[roomID]))
	for _, fn := range n.subs[roomID] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(state.Clone().Normalize())
	}
}
