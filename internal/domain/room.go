package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amachi/voicedeck/internal/infrastructure/validate"
)

const maxRoomTags = 5

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomClosed        = errors.New("room is closed")
)

// Room is the catalog entry backing the lobby listing. It is durable
// metadata only; the live participant picture lives in RoomState.
type Room struct {
	ID               string     `bson:"_id" json:"id"`
	Name             string     `bson:"name" json:"name"`
	Description      string     `bson:"description" json:"description"`
	HostID           string     `bson:"hostId" json:"hostId"`
	HostName         string     `bson:"hostName" json:"hostName"`
	IsPublic         bool       `bson:"isPublic" json:"isPublic"`
	Tags             []string   `bson:"tags,omitempty" json:"tags"`
	ParticipantCount int        `bson:"participantCount" json:"participantCount"`
	IsActive         bool       `bson:"isActive" json:"isActive"`
	LivekitRoomName  string     `bson:"livekitRoomName" json:"livekitRoomName"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	ClosedAt         *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
}

// RoomCatalog stores and lists rooms for the lobby.
type RoomCatalog interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	ListActive(ctx context.Context, limit int) ([]Room, error)
	SetParticipantCount(ctx context.Context, id string, count int) error
	Close(ctx context.Context, id string) (*Room, error)
	EnsureIndexes(ctx context.Context) error
}

func NewRoom(hostID, hostName, name, description string, isPublic bool, tags []string) (*Room, error) {
	validateName := validate.Field("room name", validate.Compose(
		validate.Required(),
		validate.MinLength(2),
		validate.MaxLength(80),
	))
	if err := validateName(name); err != nil {
		return nil, err
	}

	if len(tags) > maxRoomTags {
		tags = tags[:maxRoomTags]
	}
	for i, tag := range tags {
		tags[i] = strings.ToLower(strings.TrimSpace(tag))
	}

	id := uuid.NewString()

	return &Room{
		ID:               id,
		Name:             strings.TrimSpace(name),
		Description:      strings.TrimSpace(description),
		HostID:           hostID,
		HostName:         hostName,
		IsPublic:         isPublic,
		Tags:             tags,
		ParticipantCount: 1,
		IsActive:         true,
		// LiveKit room names are scoped by our room id so token grants
		// line up with the catalog entry.
		LivekitRoomName: "room-" + id,
		CreatedAt:       time.Now(),
	}, nil
}
