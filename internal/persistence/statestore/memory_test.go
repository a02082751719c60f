package statestore

import (
	"context"
	"testing"

	"github.com/amachi/voicedeck/internal/domain"
)

func seedState(t *testing.T, store *Memory) *domain.RoomState {
	t.Helper()

	state := domain.NewRoomState("r1", "host1", "Alice")
	if err := store.Write(context.Background(), state); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return state
}

func TestReadAbsentRoom(t *testing.T) {
	store := NewMemory()

	if _, err := store.Read(context.Background(), "nope"); err != domain.ErrRoomStateNotFound {
		t.Errorf("Read absent: err = %v, want ErrRoomStateNotFound", err)
	}
}

func TestReadReturnsCopy(t *testing.T) {
	store := NewMemory()
	seedState(t, store)
	ctx := context.Background()

	first, err := store.Read(ctx, "r1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// Mutating the returned document must not leak into the store.
	first.SpeakerUIDs = append(first.SpeakerUIDs, "intruder")
	first.Members["intruder"] = domain.RoomMember{UID: "intruder"}

	second, err := store.Read(ctx, "r1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if second.IsSpeaker("intruder") || second.HasMember("intruder") {
		t.Error("mutation of a read result leaked into the store")
	}
}

func TestPatchReplacesIncludedFieldsOnly(t *testing.T) {
	store := NewMemory()
	seedState(t, store)
	ctx := context.Background()

	listeners := []string{"u2"}
	err := store.Patch(ctx, "r1", domain.StatePatch{
		ListenerUIDs: &listeners,
		PutMembers: map[string]domain.RoomMember{
			"u2": {UID: "u2", DisplayName: "Guest", Role: domain.RoleListener, IsMuted: true},
		},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	state, err := store.Read(ctx, "r1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !state.IsListener("u2") {
		t.Error("patched listenerUids not applied")
	}
	// Omitted fields survive untouched.
	if !state.IsSpeaker("host1") {
		t.Error("speakerUids was clobbered by a patch that omitted it")
	}
	if !state.IsModerator("host1") {
		t.Error("moderatorUids was clobbered by a patch that omitted it")
	}
}

func TestPatchAbsentRoomIsNoOp(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	listeners := []string{"u1"}
	if err := store.Patch(ctx, "ghost", domain.StatePatch{ListenerUIDs: &listeners}); err != nil {
		t.Fatalf("Patch on absent room returned %v, want nil", err)
	}

	// The patch must not have upserted anything.
	if _, err := store.Read(ctx, "ghost"); err != domain.ErrRoomStateNotFound {
		t.Errorf("Patch upserted a document: Read err = %v", err)
	}
}

func TestPatchSetRolesCreatesPartialEntry(t *testing.T) {
	store := NewMemory()
	seedState(t, store)
	ctx := context.Background()

	// A sub-field write on an unknown uid creates a partial member
	// entry, just like a dotted $set against the document store.
	err := store.Patch(ctx, "r1", domain.StatePatch{
		SetRoles: map[string]domain.Role{"stranger": domain.RoleSpeaker},
		SetMuted: map[string]bool{"stranger": true},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	state, err := store.Read(ctx, "r1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	member, ok := state.Members["stranger"]
	if !ok {
		t.Fatal("sub-field patch did not create a member entry")
	}
	if member.Role != domain.RoleSpeaker || !member.IsMuted {
		t.Errorf("partial entry = %+v, want role speaker and muted", member)
	}
	if member.DisplayName != "" {
		t.Errorf("partial entry has displayName %q, want empty", member.DisplayName)
	}
}

func TestDeleteAbsentRoom(t *testing.T) {
	store := NewMemory()

	if err := store.Delete(context.Background(), "nope"); err != domain.ErrRoomStateNotFound {
		t.Errorf("Delete absent: err = %v, want ErrRoomStateNotFound", err)
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	store := NewMemory()
	seedState(t, store)

	var got []*domain.RoomState
	unsubscribe := store.Subscribe("r1", func(state *domain.RoomState) {
		got = append(got, state)
	})
	defer unsubscribe()

	if len(got) != 1 {
		t.Fatalf("expected 1 initial push, got %d", len(got))
	}
	if got[0] == nil || got[0].RoomID != "r1" {
		t.Fatalf("initial snapshot = %+v", got[0])
	}
}

func TestSubscribeToAbsentRoomDeliversNil(t *testing.T) {
	store := NewMemory()

	var got []*domain.RoomState
	unsubscribe := store.Subscribe("ghost", func(state *domain.RoomState) {
		got = append(got, state)
	})
	defer unsubscribe()

	if len(got) != 1 {
		t.Fatalf("expected 1 initial push, got %d", len(got))
	}
	if got[0] != nil {
		t.Errorf("initial snapshot for absent room = %+v, want nil", got[0])
	}
}

func TestSubscribePushesNormalizedState(t *testing.T) {
	store := NewMemory()

	// A document written with nil collections must reach subscribers
	// with empty, non-nil sets.
	state := &domain.RoomState{
		RoomID:  "r1",
		HostUID: "host1",
		Members: map[string]domain.RoomMember{
			"host1": {UID: "host1", Role: domain.RoleHost},
		},
	}
	if err := store.Write(context.Background(), state); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var got *domain.RoomState
	unsubscribe := store.Subscribe("r1", func(s *domain.RoomState) {
		got = s
	})
	defer unsubscribe()

	if got == nil {
		t.Fatal("no snapshot delivered")
	}
	if got.ModeratorUIDs == nil || got.SpeakerUIDs == nil || got.ListenerUIDs == nil || got.RaisedHandUIDs == nil {
		t.Errorf("snapshot has nil collections: %+v", got)
	}
}

func TestDeleteNotifiesSubscribersWithNil(t *testing.T) {
	store := NewMemory()
	seedState(t, store)

	var got []*domain.RoomState
	unsubscribe := store.Subscribe("r1", func(state *domain.RoomState) {
		got = append(got, state)
	})
	defer unsubscribe()

	if err := store.Delete(context.Background(), "r1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 pushes (snapshot + delete), got %d", len(got))
	}
	if got[1] != nil {
		t.Errorf("delete push = %+v, want nil", got[1])
	}
}

func TestUnsubscribeStopsPushes(t *testing.T) {
	store := NewMemory()
	seedState(t, store)
	ctx := context.Background()

	pushes := 0
	unsubscribe := store.Subscribe("r1", func(*domain.RoomState) {
		pushes++
	})

	unsubscribe()

	hands := []string{"u9"}
	if err := store.Patch(ctx, "r1", domain.StatePatch{RaisedHandUIDs: &hands}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	if pushes != 1 {
		t.Errorf("pushes after unsubscribe = %d, want 1 (the initial snapshot only)", pushes)
	}
}

func TestIndependentSubscribersGetOwnCopies(t *testing.T) {
	store := NewMemory()
	seedState(t, store)
	ctx := context.Background()

	var a, b *domain.RoomState
	unsubA := store.Subscribe("r1", func(s *domain.RoomState) { a = s })
	defer unsubA()
	unsubB := store.Subscribe("r1", func(s *domain.RoomState) { b = s })
	defer unsubB()

	listeners := []string{"u2"}
	if err := store.Patch(ctx, "r1", domain.StatePatch{ListenerUIDs: &listeners}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	if a == b {
		t.Fatal("subscribers received the same state pointer")
	}

	a.ListenerUIDs[0] = "tampered"
	if b.ListenerUIDs[0] != "u2" {
		t.Error("mutation through one subscriber's copy reached another's")
	}
}
