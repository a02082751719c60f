// Package coordinator maintains the role state machine of one audio room:
// host/moderator/speaker/listener membership, hand raising, promotion and
// demotion. Every operation is a read-modify-write against the room state
// store; the store fans the updated document out to all subscribers.
//
// Operations on a room whose document no longer exists are silent no-ops.
// A late promote racing with room teardown is a legitimate skip, not an
// error. Role gating (only moderators may promote) is the callers'
// responsibility; the coordinator applies whatever transition it is asked
// for, matching the trusted-client model of the stores it fronts.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/infrastructure/logging"
)

// EventSink receives room lifecycle and role-transition notifications.
// Publish failures must not affect the transition itself.
type EventSink interface {
	PublishRoomEvent(ctx context.Context, eventType domain.RoomEventType, roomID, actorUID, targetUID string) error
}

// Metrics counts coordinator activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RoleTransition(op string)
	RoomOpened()
	RoomClosed()
}

type Coordinator struct {
	store   domain.RoomStateStore
	logger  logging.Logger
	events  EventSink
	metrics Metrics
}

type Option func(*Coordinator)

func WithEventSink(sink EventSink) Option {
	return func(c *Coordinator) { c.events = sink }
}

func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func New(store domain.RoomStateStore, logger logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize creates the room state document with hostUID as sole member,
// moderator and speaker. If the document already exists (host reconnect)
// and the host is missing from it, the host is re-added to the stage as a
// muted speaker without resetting anything else. Re-invocation by a host
// that is already a member changes nothing.
func (c *Coordinator) Initialize(ctx context.Context, roomID, hostUID, hostName string) error {
	state, err := c.store.Read(ctx, roomID)
	if errors.Is(err, domain.ErrRoomStateNotFound) {
		if err := c.store.Write(ctx, domain.NewRoomState(roomID, hostUID, hostName)); err != nil {
			return err
		}
		c.roomOpened()
		c.publish(ctx, domain.EventRoomCreated, roomID, hostUID, "")
		return nil
	}
	if err != nil {
		return err
	}

	if state.HasMember(hostUID) {
		return nil
	}

	speakers := appendUnique(state.SpeakerUIDs, hostUID)
	return c.store.Patch(ctx, roomID, domain.StatePatch{
		SpeakerUIDs: &speakers,
		PutMembers: map[string]domain.RoomMember{
			hostUID: {
				UID:         hostUID,
				DisplayName: hostName,
				Role:        domain.RoleSpeaker,
				IsMuted:     true,
				JoinedAt:    time.Now(),
			},
		},
	})
}

// JoinAsListener adds uid to the audience. Joining twice is idempotent.
func (c *Coordinator) JoinAsListener(ctx context.Context, roomID, uid, displayName string) error {
	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		return c.skipAbsent(err, roomID, "join_as_listener")
	}
	if state.HasMember(uid) {
		return nil
	}

	listeners := appendUnique(state.ListenerUIDs, uid)
	err = c.store.Patch(ctx, roomID, domain.StatePatch{
		ListenerUIDs: &listeners,
		PutMembers: map[string]domain.RoomMember{
			uid: {
				UID:         uid,
				DisplayName: displayName,
				Role:        domain.RoleListener,
				IsMuted:     true,
				JoinedAt:    time.Now(),
			},
		},
	})
	if err != nil {
		return err
	}

	c.transition("join")
	c.publish(ctx, domain.EventMemberJoined, roomID, uid, uid)
	return nil
}

// SetHandRaised adds or removes uid from the raised-hand set. The
// caller's current role is deliberately not checked; a speaker raising a
// hand is tolerated and simply ignored by moderation UIs.
func (c *Coordinator) SetHandRaised(ctx context.Context, roomID, uid string, raised bool) error {
	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		return c.skipAbsent(err, roomID, "set_hand_raised")
	}

	var hands []string
	if raised {
		hands = appendUnique(state.RaisedHandUIDs, uid)
	} else {
		hands = removeUID(state.RaisedHandUIDs, uid)
	}

	if err := c.store.Patch(ctx, roomID, domain.StatePatch{RaisedHandUIDs: &hands}); err != nil {
		return err
	}

	event := domain.EventHandLowered
	if raised {
		event = domain.EventHandRaised
	}
	c.publish(ctx, event, roomID, uid, uid)
	return nil
}

// PromoteToSpeaker moves uid from the audience onto the stage: removed
// from listeners and raised hands, added to speakers, role=speaker and
// unmuted so they can talk right away.
func (c *Coordinator) PromoteToSpeaker(ctx context.Context, roomID, uid string) error {
	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		return c.skipAbsent(err, roomID, "promote_to_speaker")
	}

	speakers := appendUnique(state.SpeakerUIDs, uid)
	listeners := removeUID(state.ListenerUIDs, uid)
	hands := removeUID(state.RaisedHandUIDs, uid)

	err = c.store.Patch(ctx, roomID, domain.StatePatch{
		SpeakerUIDs:    &speakers,
		ListenerUIDs:   &listeners,
		RaisedHandUIDs: &hands,
		SetRoles:       map[string]domain.Role{uid: domain.RoleSpeaker},
		SetMuted:       map[string]bool{uid: false},
	})
	if err != nil {
		return err
	}

	c.transition("promote")
	c.publish(ctx, domain.EventMemberPromoted, roomID, "", uid)
	return nil
}

// DemoteToListener moves uid off the stage back into the audience,
// muted. A previously raised hand is not restored.
func (c *Coordinator) DemoteToListener(ctx context.Context, roomID, uid string) error {
	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		return c.skipAbsent(err, roomID, "demote_to_listener")
	}

	speakers := removeUID(state.SpeakerUIDs, uid)
	listeners := appendUnique(state.ListenerUIDs, uid)

	err = c.store.Patch(ctx, roomID, domain.StatePatch{
		SpeakerUIDs:  &speakers,
		ListenerUIDs: &listeners,
		SetRoles:     map[string]domain.Role{uid: domain.RoleListener},
		SetMuted:     map[string]bool{uid: true},
	})
	if err != nil {
		return err
	}

	c.transition("demote")
	c.publish(ctx, domain.EventMemberDemoted, roomID, "", uid)
	return nil
}

// GrantModerator adds uid to the moderator set. Stage membership is left
// alone; moderation is additive to wherever the member currently sits.
func (c *Coordinator) GrantModerator(ctx context.Context, roomID, uid string) error {
	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		return c.skipAbsent(err, roomID, "grant_moderator")
	}

	mods := appendUnique(state.ModeratorUIDs, uid)

	err = c.store.Patch(ctx, roomID, domain.StatePatch{
		ModeratorUIDs: &mods,
		SetRoles:      map[string]domain.Role{uid: domain.RoleModerator},
	})
	if err != nil {
		return err
	}

	c.transition("grant_moderator")
	c.publish(ctx, domain.EventModeratorGranted, roomID, "", uid)
	return nil
}

// RevokeModerator strips moderation from uid, returning them to plain
// speaker. Revoking the host is a no-op; the host's moderation cannot be
// taken away.
func (c *Coordinator) RevokeModerator(ctx context.Context, roomID, uid, hostUID string) error {
	if uid == hostUID {
		return nil
	}

	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		return c.skipAbsent(err, roomID, "revoke_moderator")
	}

	mods := removeUID(state.ModeratorUIDs, uid)

	err = c.store.Patch(ctx, roomID, domain.StatePatch{
		ModeratorUIDs: &mods,
		SetRoles:      map[string]domain.Role{uid: domain.RoleSpeaker},
	})
	if err != nil {
		return err
	}

	c.transition("revoke_moderator")
	c.publish(ctx, domain.EventModeratorRevoked, roomID, "", uid)
	return nil
}

// UpdateMuteState flips the member's mute flag. Membership sets are not
// touched, so this is a bare field patch without a prior read.
func (c *Coordinator) UpdateMuteState(ctx context.Context, roomID, uid string, isMuted bool) error {
	return c.store.Patch(ctx, roomID, domain.StatePatch{
		SetMuted: map[string]bool{uid: isMuted},
	})
}

// LeaveRoom removes uid from every membership set and deletes its member
// entry. Best effort: a disconnecting client cannot retry, so failures
// are logged and swallowed.
func (c *Coordinator) LeaveRoom(ctx context.Context, roomID, uid string) error {
	state, err := c.store.Read(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomStateNotFound) {
			return nil
		}
		c.warn(roomID, "leave_room", err)
		return nil
	}

	speakers := removeUID(state.SpeakerUIDs, uid)
	listeners := removeUID(state.ListenerUIDs, uid)
	hands := removeUID(state.RaisedHandUIDs, uid)

	err = c.store.Patch(ctx, roomID, domain.StatePatch{
		SpeakerUIDs:    &speakers,
		ListenerUIDs:   &listeners,
		RaisedHandUIDs: &hands,
		RemoveMembers:  []string{uid},
	})
	if err != nil {
		c.warn(roomID, "leave_room", err)
		return nil
	}

	c.transition("leave")
	c.publish(ctx, domain.EventMemberLeft, roomID, uid, uid)
	return nil
}

// CloseRoom deletes the room state document. Subscribers observe the
// disappearance and must treat the room as terminated. Best effort.
func (c *Coordinator) CloseRoom(ctx context.Context, roomID string) error {
	if err := c.store.Delete(ctx, roomID); err != nil {
		if errors.Is(err, domain.ErrRoomStateNotFound) {
			return nil
		}
		c.warn(roomID, "close_room", err)
		return nil
	}

	c.roomClosed()
	c.publish(ctx, domain.EventRoomClosed, roomID, "", "")
	return nil
}

// Subscribe registers fn for live state pushes until the returned
// function is called. fn always receives a normalized document, or nil
// once the room is gone.
func (c *Coordinator) Subscribe(roomID string, fn func(*domain.RoomState)) domain.UnsubscribeFunc {
	return c.store.Subscribe(roomID, fn)
}

// skipAbsent converts the absent-room read error into a silent skip and
// passes every other error through.
func (c *Coordinator) skipAbsent(err error, roomID, op string) error {
	if errors.Is(err, domain.ErrRoomStateNotFound) {
		if c.logger != nil {
			c.logger.Debug(logging.RoomState, logging.Transition, "operation on absent room skipped",
				map[logging.ExtraKey]any{"room_id": roomID, "op": op})
		}
		return nil
	}
	return err
}

func (c *Coordinator) warn(roomID, op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(logging.RoomState, logging.Transition, "best-effort operation failed",
		map[logging.ExtraKey]any{"room_id": roomID, "op": op, logging.ErrorMessage: err.Error()})
}

func (c *Coordinator) publish(ctx context.Context, eventType domain.RoomEventType, roomID, actorUID, targetUID string) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishRoomEvent(ctx, eventType, roomID, actorUID, targetUID); err != nil && c.logger != nil {
		c.logger.Warn(logging.RabbitMQ, logging.ExternalService, "room event publish failed",
			map[logging.ExtraKey]any{"room_id": roomID, "event": string(eventType), logging.ErrorMessage: err.Error()})
	}
}

func (c *Coordinator) transition(op string) {
	if c.metrics != nil {
		c.metrics.RoleTransition(op)
	}
}

func (c *Coordinator) roomOpened() {
	if c.metrics != nil {
		c.metrics.RoomOpened()
	}
}

func (c *Coordinator) roomClosed() {
	if c.metrics != nil {
		c.metrics.RoomClosed()
	}
}

func appendUnique(uids []string, uid string) []string {
	out := append([]string(nil), uids...)
	for _, id := range out {
		if id == uid {
			return out
		}
	}
	return append(out, uid)
}

func removeUID(uids []string, uid string) []string {
	out := make([]string, 0, len(uids))
	for _, id := range uids {
		if id != uid {
			out = append(out, id)
		}
	}
	return out
}
