package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/mq"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/out"
)

// Publisher - то, что умеет mq.RabbitMQ
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// OrderEventPublisher публикует события заказов в RabbitMQ
type OrderEventPublisher struct {
	mq  Publisher
	log *logger.Logger
}

// NewOrderEventPublisher создает новый publisher
func NewOrderEventPublisher(mqConn Publisher, log *logger.Logger) *OrderEventPublisher {
	return &OrderEventPublisher{
		mq:  mqConn,
		log: log,
	}
}

// PublishOrderEvent публикует событие в order_topic exchange
func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, event out.OrderEvent) error {
	if event.RoutingKey == "" {
		return fmt.Errorf("order event %s: empty routing key", event.OrderID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	if err := p.mq.Publish(ctx, mq.OrderExchange, event.RoutingKey, payload); err != nil {
		p.log.Error(logger.Entry{
			Action:  "publish_order_event_failed",
			Message: err.Error(),
			OrderID: event.OrderID,
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"routing_key": event.RoutingKey,
			},
		})
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:  "order_event_published",
		Message: event.RoutingKey,
		OrderID: event.OrderID,
	})
	return nil
}

// NoopPublisher используется, когда RabbitMQ выключен в конфиге
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, out.OrderEvent) error { return nil }
