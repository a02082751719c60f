package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	ActorUID string `json:"actorUid"`
	Data     []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventRoomCreated      = "room.created"
	EventRoomClosed       = "room.closed"
	EventMemberJoined     = "member.joined"
	EventMemberLeft       = "member.left"
	EventMemberPromoted   = "member.promoted"
	EventMemberDemoted    = "member.demoted"
	EventModeratorGranted = "moderator.granted"
	EventModeratorRevoked = "moderator.revoked"
	EventHandRaised       = "hand.raised"
	EventHandLowered      = "hand.lowered"
)
