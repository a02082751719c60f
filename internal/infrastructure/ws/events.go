package ws

// Outbound frame types.
const (
	RoomState  = "room.state"
	RoomClosed = "room.closed"
	YTSync     = "yt-sync"

	ErrorEvent = "error"
)

// Inbound frame types.
const (
	IntentHandRaise = "hand.raise"
	IntentHandLower = "hand.lower"
	IntentMuteSet   = "mute.set"
	IntentYTSync    = "yt-sync"
)
