package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeStageCancel    MessageType = "stage.cancel"
	MessageTypeStageRestart   MessageType = "stage.restart"
	MessageTypeStageCompleted MessageType = "stage.completed"
	MessageTypeStageReady     MessageType = "stage.ready"
	MessageTypeJobDestroy     MessageType = "job.destroy"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// StageEventPayload — payload событий stage.
// Status заполняется для stage.completed.
type StageEventPayload struct {
	StageID     uuid.UUID `json:"stage_id"`
	ExecutionID uuid.UUID `json:"execution_id"`
	Status      string    `json:"status,omitempty"`
}

// JobDestroyPayload — payload запроса на уничтожение job.
type JobDestroyPayload struct {
	StageID     uuid.UUID      `json:"stage_id,omitempty"`
	ExecutionID uuid.UUID      `json:"execution_id,omitempty"`
	Cleanup     map[string]any `json:"cleanup"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: telemetry.OrDefault(logger),
	}
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishStageCancel публикует запрос на отмену stage.
// Потребитель: orchestrator.
func (p *Publisher) PublishStageCancel(ctx context.Context, payload StageEventPayload) error {
	return p.Publish(ctx, ExchangeStages, RoutingKeyCancel, NewMessage(MessageTypeStageCancel, payload))
}

// PublishStageRestart публикует запрос на рестарт stage.
// Потребитель: orchestrator.
func (p *Publisher) PublishStageRestart(ctx context.Context, payload StageEventPayload) error {
	return p.Publish(ctx, ExchangeStages, RoutingKeyRestart, NewMessage(MessageTypeStageRestart, payload))
}

// PublishStageCompleted публикует событие о завершении задач stage.
// Потребитель: orchestrator.
func (p *Publisher) PublishStageCompleted(ctx context.Context, payload StageEventPayload) error {
	return p.Publish(ctx, ExchangeStages, RoutingKeyCompleted, NewMessage(MessageTypeStageCompleted, payload))
}

// PublishStageReady публикует sub-stage, зависимости которого выполнены.
// Потребитель: engine.
func (p *Publisher) PublishStageReady(ctx context.Context, payload StageEventPayload) error {
	return p.Publish(ctx, ExchangeStages, RoutingKeyReady, NewMessage(MessageTypeStageReady, payload))
}

// PublishJobDestroy публикует запрос на уничтожение job.
// Потребитель: внешний исполнитель cleanup-задач.
func (p *Publisher) PublishJobDestroy(ctx context.Context, payload JobDestroyPayload) error {
	return p.Publish(ctx, ExchangeJobs, RoutingKeyDestroy, NewMessage(MessageTypeJobDestroy, payload))
}
