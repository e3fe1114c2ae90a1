package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeStages Exchange = "stagegraph.stages"
	ExchangeJobs   Exchange = "stagegraph.jobs"
	ExchangeDLQ    Exchange = "stagegraph.dlq"
)

// Queues — имена очередей.
const (
	QueueStagesCancel    Queue = "stages.cancel"
	QueueStagesRestart   Queue = "stages.restart"
	QueueStagesCompleted Queue = "stages.completed"
	QueueStagesReady     Queue = "stages.ready"
	QueueJobsDestroy     Queue = "jobs.destroy"
	QueueDLQStages       Queue = "dlq.stages"
)

// Routing keys.
const (
	RoutingKeyCancel    RoutingKey = "cancel"
	RoutingKeyRestart   RoutingKey = "restart"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyReady     RoutingKey = "ready"
	RoutingKeyDestroy   RoutingKey = "destroy"
	RoutingKeyDLQStages RoutingKey = "stages"
)

// SetupTopology объявляет exchanges, queues и bindings.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeStages, ExchangeJobs, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQStages),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueStagesCancel, dlqArgs},
		{QueueStagesRestart, dlqArgs},
		{QueueStagesCompleted, dlqArgs},

		// stages.ready и jobs.destroy читает внешний engine
		{QueueStagesReady, nil},
		{QueueJobsDestroy, nil},

		{QueueDLQStages, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueStagesCancel, RoutingKeyCancel, ExchangeStages},
		{QueueStagesRestart, RoutingKeyRestart, ExchangeStages},
		{QueueStagesCompleted, RoutingKeyCompleted, ExchangeStages},
		{QueueStagesReady, RoutingKeyReady, ExchangeStages},
		{QueueJobsDestroy, RoutingKeyDestroy, ExchangeJobs},
		{QueueDLQStages, RoutingKeyDLQStages, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
