package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/infrastructure/contracts"
	"github.com/amachi/voicedeck/internal/infrastructure/messaging"
)

var routingKeys = map[domain.RoomEventType]string{
	domain.EventRoomCreated:      contracts.EventRoomCreated,
	domain.EventRoomClosed:       contracts.EventRoomClosed,
	domain.EventMemberJoined:     contracts.EventMemberJoined,
	domain.EventMemberLeft:       contracts.EventMemberLeft,
	domain.EventMemberPromoted:   contracts.EventMemberPromoted,
	domain.EventMemberDemoted:    contracts.EventMemberDemoted,
	domain.EventModeratorGranted: contracts.EventModeratorGranted,
	domain.EventModeratorRevoked: contracts.EventModeratorRevoked,
	domain.EventHandRaised:       contracts.EventHandRaised,
	domain.EventHandLowered:      contracts.EventHandLowered,
}

type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) PublishRoomEvent(ctx context.Context, eventType domain.RoomEventType, roomID, actorUID, targetUID string) error {
	routingKey, ok := routingKeys[eventType]
	if !ok {
		// Unknown event types are dropped rather than published under a
		// key no queue is bound to.
		return nil
	}

	payload := messaging.RoomEventData{
		EventType:  string(eventType),
		RoomID:     roomID,
		ActorUID:   actorUID,
		TargetUID:  targetUID,
		OccurredAt: time.Now(),
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		ActorUID: actorUID,
		Data:     roomEventJSON,
	})
}
