package ws

import (
	"encoding/json"

	"github.com/amachi/voicedeck/internal/domain"
)

type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data"`
}

// ClientFrame is the envelope for inbound frames.
type ClientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Payload structs
type MutePayload struct {
	IsMuted bool `json:"isMuted"`
}

type YTSyncPayload struct {
	VideoID string `json:"videoId"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

func NewRoomState(roomID string, state *domain.RoomState) *WSMessage {
	return &WSMessage{
		Type:   RoomState,
		RoomID: roomID,
		Data:   state,
	}
}

func NewRoomClosed(roomID string) *WSMessage {
	return &WSMessage{
		Type:   RoomClosed,
		RoomID: roomID,
		Data:   nil,
	}
}

func NewYTSync(roomID, videoID string) *WSMessage {
	return &WSMessage{
		Type:   YTSync,
		RoomID: roomID,
		Data: YTSyncPayload{
			VideoID: videoID,
		},
	}
}

func NewError(roomID, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Message: message,
			Retry:   false,
		},
	}
}
