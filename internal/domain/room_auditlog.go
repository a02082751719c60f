package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated      RoomEventType = "room_created"
	EventRoomClosed       RoomEventType = "room_closed"
	EventMemberJoined     RoomEventType = "member_joined"
	EventMemberLeft       RoomEventType = "member_left"
	EventHandRaised       RoomEventType = "hand_raised"
	EventHandLowered      RoomEventType = "hand_lowered"
	EventMemberPromoted   RoomEventType = "member_promoted"
	EventMemberDemoted    RoomEventType = "member_demoted"
	EventModeratorGranted RoomEventType = "moderator_granted"
	EventModeratorRevoked RoomEventType = "moderator_revoked"
)

// RoomAuditLog records one role transition or lifecycle event for later
// moderation review.
type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	ActorUID  string         `bson:"actor_uid,omitempty" json:"actorUid,omitempty"`
	TargetUID string         `bson:"target_uid,omitempty" json:"targetUid,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	GetByEventType(ctx context.Context, eventType RoomEventType, from, to time.Time) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewRoomAuditLog(roomID string, eventType RoomEventType, actorUID, targetUID string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		ActorUID:  actorUID,
		TargetUID: targetUID,
		Timestamp: time.Now(),
	}
}
