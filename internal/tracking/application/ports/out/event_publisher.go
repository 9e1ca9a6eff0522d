package out

import (
	"context"
	"time"
)

// Ключи маршрутизации в exchange order_topic
const (
	RoutingOrderAccepted      = "order.accepted"
	RoutingOrderLocation      = "order.location"
	RoutingDriverDisconnected = "driver.disconnected"
	routingOrderStatusPrefix  = "order.status."
)

// RoutingOrderStatus - order.status.<status>
func RoutingOrderStatus(status string) string {
	return routingOrderStatusPrefix + status
}

// OrderEvent - событие жизненного цикла заказа для внешних потребителей
type OrderEvent struct {
	RoutingKey     string         `json:"-"`
	OrderID        string         `json:"order_id"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	DriverID       string         `json:"driver_id,omitempty"`
	Status         string         `json:"status,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// EventPublisher - публикация событий в RabbitMQ.
// Ошибки только логируются, доставка в WebSocket от них не зависит.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
