package statestore

import (
	"context"
	"sync"

	"github.com/amachi/voicedeck/internal/domain"
)

// Memory is a process-local RoomStateStore. It keeps the same
// last-write-wins, field-granular patch semantics as the Mongo store so
// coordinator behavior is identical under test.
type Memory struct {
	mu       sync.RWMutex
	states   map[string]*domain.RoomState
	notifier *notifier
}

var _ domain.RoomStateStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		states:   make(map[string]*domain.RoomState),
		notifier: newNotifier(),
	}
}

func (m *Memory) Read(ctx context.Context, roomID string) (*domain.RoomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[roomID]
	if !ok {
		return nil, domain.ErrRoomStateNotFound
	}
	return state.Clone().Normalize(), nil
}

func (m *Memory) Write(ctx context.Context, state *domain.RoomState) error {
	cp := state.Clone().Normalize()

	m.mu.Lock()
	m.states[state.RoomID] = cp
	m.mu.Unlock()

	m.notifier.publish(state.RoomID, cp)
	return nil
}

func (m *Memory) Patch(ctx context.Context, roomID string, patch domain.StatePatch) error {
	m.mu.Lock()
	state, ok := m.states[roomID]
	if !ok {
		// Patching an absent document never creates one.
		m.mu.Unlock()
		return nil
	}

	next := applyPatch(state.Clone().Normalize(), patch)
	m.states[roomID] = next
	m.mu.Unlock()

	m.notifier.publish(roomID, next)
	return nil
}

func (m *Memory) Delete(ctx context.Context, roomID string) error {
	m.mu.Lock()
	_, ok := m.states[roomID]
	delete(m.states, roomID)
	m.mu.Unlock()

	if !ok {
		return domain.ErrRoomStateNotFound
	}

	m.notifier.publish(roomID, nil)
	return nil
}

func (m *Memory) Subscribe(roomID string, fn func(*domain.RoomState)) domain.UnsubscribeFunc {
	unsubscribe := m.notifier.subscribe(roomID, fn)

	// Initial snapshot, matching the push-on-attach behavior clients
	// rely on to render the room without a separate read.
	m.mu.RLock()
	state := m.states[roomID]
	var snapshot *domain.RoomState
	if state != nil {
		snapshot = state.Clone().Normalize()
	}
	m.mu.RUnlock()

	fn(snapshot)
	return unsubscribe
}

// applyPatch merges a field-granular update into state. Included fields
// replace stored values wholesale; omitted fields survive untouched.
func applyPatch(state *domain.RoomState, patch domain.StatePatch) *domain.RoomState {
	if patch.ModeratorUIDs != nil {
		state.ModeratorUIDs = append([]string(nil), *patch.ModeratorUIDs...)
	}
	if patch.SpeakerUIDs != nil {
		state.SpeakerUIDs = append([]string(nil), *patch.SpeakerUIDs...)
	}
	if patch.ListenerUIDs != nil {
		state.ListenerUIDs = append([]string(nil), *patch.ListenerUIDs...)
	}
	if patch.RaisedHandUIDs != nil {
		state.RaisedHandUIDs = append([]string(nil), *patch.RaisedHandUIDs...)
	}

	for uid, member := range patch.PutMembers {
		state.Members[uid] = member
	}
	// Sub-field writes on a missing uid create a partial entry, the
	// same document the Mongo store's dotted $set produces.
	for uid, role := range patch.SetRoles {
		member := state.Members[uid]
		member.Role = role
		state.Members[uid] = member
	}
	for uid, muted := range patch.SetMuted {
		member := state.Members[uid]
		member.IsMuted = muted
		state.Members[uid] = member
	}
	for _, uid := range patch.RemoveMembers {
		delete(state.Members, uid)
	}

	return state
}
