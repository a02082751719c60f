package rooms

import (
	"time"

	"github.com/amachi/voicedeck/internal/domain"
)

// createRoomRequest creates a new audio room with the caller as host.
type createRoomRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Username    string   `json:"username"`
	IsPublic    bool     `json:"isPublic"`
	Tags        []string `json:"tags"`
}

type createRoomResponse struct {
	RoomID          string    `json:"roomId"`
	Name            string    `json:"name"`
	HostUID         string    `json:"hostUid"`
	LivekitRoomName string    `json:"livekitRoomName"`
	IsPublic        bool      `json:"isPublic"`
	CreatedAt       time.Time `json:"createdAt"`
}

type joinRoomRequest struct {
	DisplayName string `json:"displayName"`
}

type joinRoomResponse struct {
	RoomID string `json:"roomId"`
	UID    string `json:"uid"`
	Role   string `json:"role"`
}

type handRequest struct {
	Raised bool `json:"raised"`
}

type targetRequest struct {
	UID string `json:"uid"`
}

type muteRequest struct {
	IsMuted bool `json:"isMuted"`
}

type roomResponse struct {
	Room  *domain.Room      `json:"room"`
	State *domain.RoomState `json:"state,omitempty"`
}

type listRoomsResponse struct {
	Rooms []domain.Room `json:"rooms"`
}
