package messaging

import "time"

const (
	RoomsQueue      = "rooms"
	DeadLetterQueue = "dead_letter_queue"
)

type RoomEventData struct {
	EventType  string    `json:"eventType"`
	RoomID     string    `json:"roomId"`
	ActorUID   string    `json:"actorUid"`
	TargetUID  string    `json:"targetUid,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
