package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// Handler обрабатывает одно сообщение.
// nil — ack; ошибка с ErrPermanent — nack в DLQ; любая другая — nack с requeue.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — распарсенное сообщение вместе с исходной AMQP доставкой.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — очередь, из которой читаем.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держать (минимум 1).
	Prefetch int

	// HandlerTimeout — лимит времени на одно сообщение (0 — без лимита).
	HandlerTimeout time.Duration
}

// Consumer читает очередь и передаёт сообщения Handler по одному.
type Consumer struct {
	conn   *Connection
	cfg    ConsumerConfig
	logger *slog.Logger

	cancel context.CancelFunc
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	cfg.Prefetch = max(cfg.Prefetch, 1)
	return &Consumer{
		conn:   conn,
		cfg:    cfg,
		logger: telemetry.OrDefault(logger).With("queue", cfg.Queue),
	}
}

// Start читает очередь, пока ctx не отменён или не вызван Stop.
// Разрыв соединения не завершает Start: consumer ждёт переподключения
// и подписывается снова.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	for {
		reconnected := c.conn.ReconnectNotify()

		deliveries, err := c.subscribe()
		if err == nil {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		} else {
			c.logger.Error("failed to subscribe", "error", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
		}
	}
}

// Stop останавливает Start.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// subscribe выставляет prefetch и начинает Consume без auto-ack.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.conn.WithChannel(context.Background(), func(ch *amqp.Channel) error {
		if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		var err error
		deliveries, err = ch.Consume(string(c.cfg.Queue), "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
		}
		return nil
	})
	return deliveries, err
}

// drain обрабатывает доставки, пока канал открыт и ctx жив.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, raw)
		}
	}
}

// handle разбирает сообщение, вызывает Handler и подтверждает доставку.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message, dropping to DLQ", "error", err)
		raw.Nack(false, false)
		return
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("received message")

	hctx := telemetry.WithLogger(ctx, logger)
	if c.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(hctx, c.cfg.HandlerTimeout)
		defer cancel()
	}

	err := c.invoke(hctx, &Delivery{Message: msg, Raw: raw})
	if err == nil {
		raw.Ack(false)
		return
	}

	permanent := errors.Is(err, ErrPermanent)
	logger.Error("handler failed", "permanent", permanent, "error", err)
	raw.Nack(false, !permanent)
}

// invoke вызывает Handler; паника обработчика становится ErrPermanent.
func (c *Consumer) invoke(ctx context.Context, d *Delivery) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: handler panicked: %v", ErrPermanent, v)
		}
	}()
	return c.cfg.Handler(ctx, d)
}

// ParsePayload декодирует payload сообщения в T.
// Payload неподходящей формы — ErrPermanent.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После Unmarshal в Message payload — map[string]any.
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("%w: unmarshal payload: %w", ErrPermanent, err)
	}
	return result, nil
}
