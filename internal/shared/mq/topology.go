package mq

import (
	"context"
	"fmt"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
)

const (
	// OrderExchange - topic exchange событий жизненного цикла заказа
	OrderExchange = "order_topic"

	// AuditQueue получает все события заказа (order.#, driver.#)
	AuditQueue = "order.events.audit"
)

// AuditBindings - routing key шаблоны для AuditQueue
var AuditBindings = []string{"order.#", "driver.#"}

// SetupTopology создает exchange, очередь аудита и bindings (идемпотентно)
func SetupTopology(ctx context.Context, mq *RabbitMQ, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return ErrChannelUnavailable
	}

	if err := ch.ExchangeDeclare(
		OrderExchange, // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // args
	); err != nil {
		return fmt.Errorf("declare %s: %w", OrderExchange, err)
	}

	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", AuditQueue, err)
	}
	for _, key := range AuditBindings {
		if err := ch.QueueBind(AuditQueue, key, OrderExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", AuditQueue, key, err)
		}
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: fmt.Sprintf("exchange %s ready", OrderExchange),
	})

	return nil
}
