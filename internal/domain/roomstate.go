package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoomStateNotFound = errors.New("room state not found")
	ErrStoreClosed       = errors.New("state store is closed")
)

// Role is a participant's capability level inside a room.
type Role string

const (
	RoleHost      Role = "host"
	RoleModerator Role = "moderator"
	RoleSpeaker   Role = "speaker"
	RoleListener  Role = "listener"
)

// CanPublish reports whether the role is allowed to transmit audio.
func (r Role) CanPublish() bool {
	return r == RoleHost || r == RoleModerator || r == RoleSpeaker
}

func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleModerator, RoleSpeaker, RoleListener:
		return true
	}
	return false
}

// RoomMember is one participant's entry in the room state document.
type RoomMember struct {
	UID         string    `bson:"uid" json:"uid"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	Role        Role      `bson:"role" json:"role"`
	IsMuted     bool      `bson:"isMuted" json:"isMuted"`
	JoinedAt    time.Time `bson:"joinedAt" json:"joinedAt"`
}

// RoomState is the shared realtime document for one room. Every field
// mutation goes through the coordinator as a read-modify-write against
// a RoomStateStore; the store pushes the full document to subscribers
// after each write.
type RoomState struct {
	RoomID         string                `bson:"_id" json:"roomId"`
	HostUID        string                `bson:"hostUid" json:"hostUid"`
	ModeratorUIDs  []string              `bson:"moderatorUids" json:"moderatorUids"`
	SpeakerUIDs    []string              `bson:"speakerUids" json:"speakerUids"`
	ListenerUIDs   []string              `bson:"listenerUids" json:"listenerUids"`
	RaisedHandUIDs []string              `bson:"raisedHandUids" json:"raisedHandUids"`
	Members        map[string]RoomMember `bson:"members" json:"members"`
	CreatedAt      time.Time             `bson:"createdAt" json:"createdAt"`
}

// NewRoomState builds the initial document for a freshly opened room:
// the host is the sole member, sole moderator and sole speaker, unmuted.
func NewRoomState(roomID, hostUID, hostName string) *RoomState {
	now := time.Now()

	return &RoomState{
		RoomID:         roomID,
		HostUID:        hostUID,
		ModeratorUIDs:  []string{hostUID},
		SpeakerUIDs:    []string{hostUID},
		ListenerUIDs:   []string{},
		RaisedHandUIDs: []string{},
		Members: map[string]RoomMember{
			hostUID: {
				UID:         hostUID,
				DisplayName: hostName,
				Role:        RoleHost,
				IsMuted:     false,
				JoinedAt:    now,
			},
		},
		CreatedAt: now,
	}
}

// Normalize coerces store-level omissions of empty collections back into
// empty, non-nil sets. Document stores drop empty arrays/maps on encode,
// so a freshly decoded state may carry nil fields; callers must always
// see well-typed collections.
func (s *RoomState) Normalize() *RoomState {
	if s == nil {
		return nil
	}
	if s.ModeratorUIDs == nil {
		s.ModeratorUIDs = []string{}
	}
	if s.SpeakerUIDs == nil {
		s.SpeakerUIDs = []string{}
	}
	if s.ListenerUIDs == nil {
		s.ListenerUIDs = []string{}
	}
	if s.RaisedHandUIDs == nil {
		s.RaisedHandUIDs = []string{}
	}
	if s.Members == nil {
		s.Members = map[string]RoomMember{}
	}
	return s
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *RoomState) Clone() *RoomState {
	if s == nil {
		return nil
	}

	cp := *s
	cp.ModeratorUIDs = append([]string(nil), s.ModeratorUIDs...)
	cp.SpeakerUIDs = append([]string(nil), s.SpeakerUIDs...)
	cp.ListenerUIDs = append([]string(nil), s.ListenerUIDs...)
	cp.RaisedHandUIDs = append([]string(nil), s.RaisedHandUIDs...)
	cp.Members = make(map[string]RoomMember, len(s.Members))
	for uid, m := range s.Members {
		cp.Members[uid] = m
	}
	return &cp
}

func (s *RoomState) HasMember(uid string) bool {
	_, ok := s.Members[uid]
	return ok
}

// IsModerator reports whether uid may promote/demote/grant/revoke.
// The host is implicitly a moderator even if the moderator set was
// clobbered by a concurrent write.
func (s *RoomState) IsModerator(uid string) bool {
	if uid == s.HostUID {
		return true
	}
	return contains(s.ModeratorUIDs, uid)
}

func (s *RoomState) IsSpeaker(uid string) bool  { return contains(s.SpeakerUIDs, uid) }
func (s *RoomState) IsListener(uid string) bool { return contains(s.ListenerUIDs, uid) }
func (s *RoomState) HandRaised(uid string) bool { return contains(s.RaisedHandUIDs, uid) }

func contains(uids []string, uid string) bool {
	for _, id := range uids {
		if id == uid {
			return true
		}
	}
	return false
}

// StatePatch is a field-granular update against one room document,
// mirroring a path-addressed multi-field write. A nil slice pointer or
// empty map leaves the corresponding field untouched; an included field
// replaces the stored value wholesale (last write wins per field, there
// is no merge).
type StatePatch struct {
	ModeratorUIDs  *[]string
	SpeakerUIDs    *[]string
	ListenerUIDs   *[]string
	RaisedHandUIDs *[]string

	PutMembers    map[string]RoomMember
	SetRoles      map[string]Role
	SetMuted      map[string]bool
	RemoveMembers []string
}

// IsZero reports whether applying the patch would change nothing.
func (p StatePatch) IsZero() bool {
	return p.ModeratorUIDs == nil &&
		p.SpeakerUIDs == nil &&
		p.ListenerUIDs == nil &&
		p.RaisedHandUIDs == nil &&
		len(p.PutMembers) == 0 &&
		len(p.SetRoles) == 0 &&
		len(p.SetMuted) == 0 &&
		len(p.RemoveMembers) == 0
}

// UnsubscribeFunc detaches a live room-state subscription.
type UnsubscribeFunc func()

// RoomStateStore is the realtime document store behind the coordinator.
// Implementations provide durable storage, per-field patch writes and
// push-based fan-out of the full document on every change. No
// transactional guarantees across concurrent writers are assumed.
type RoomStateStore interface {
	// Read returns the current document, or ErrRoomStateNotFound.
	Read(ctx context.Context, roomID string) (*RoomState, error)

	// Write stores the full document, creating it if absent.
	Write(ctx context.Context, state *RoomState) error

	// Patch applies a field-granular update. Patching an absent
	// document is a silent no-op, never an upsert.
	Patch(ctx context.Context, roomID string, patch StatePatch) error

	// Delete removes the document; subscribers observe nil.
	Delete(ctx context.Context, roomID string) error

	// Subscribe registers fn for state pushes on roomID. fn is invoked
	// once with the current document (or nil) at registration time and
	// again after every change, always with a normalized deep copy.
	Subscribe(roomID string, fn func(*RoomState)) UnsubscribeFunc
}
