package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/rabbitmq/amqp091-go"

	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/infrastructure/contracts"
	"github.com/amachi/voicedeck/internal/infrastructure/messaging"
)

type roomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	auditLog domain.RoomAuditRepository
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, auditLog domain.RoomAuditRepository) *roomConsumer {
	return &roomConsumer{
		rabbitmq: rabbitmq,
		auditLog: auditLog,
	}
}

func (c *roomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			return err
		}

		var payload messaging.RoomEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			log.Printf("Failed to unmarshal room event: %v", err)
			return err
		}

		entry := domain.NewRoomAuditLog(
			payload.RoomID,
			domain.RoomEventType(payload.EventType),
			payload.ActorUID,
			payload.TargetUID,
		)
		if !payload.OccurredAt.IsZero() {
			entry.Timestamp = payload.OccurredAt
		}

		return c.auditLog.Log(ctx, entry)
	})
}
