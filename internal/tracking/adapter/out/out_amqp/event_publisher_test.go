package out_amqp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/mq"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/out"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	body          []byte
}

type fakeMQ struct {
	msgs []published
	err  error
}

func (f *fakeMQ) Publish(_ context.Context, exchange, key string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{exchange, key, body})
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLoggerWithWriter("amqp-test", logger.LevelError, io.Discard)
}

func TestPublishOrderEvent(t *testing.T) {
	fake := &fakeMQ{}
	p := NewOrderEventPublisher(fake, testLogger())

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	err := p.PublishOrderEvent(context.Background(), out.OrderEvent{
		RoutingKey:     out.RoutingOrderStatus("delivered"),
		OrderID:        "o-7",
		TrackingNumber: "AE007",
		DriverID:       "d1",
		Status:         "delivered",
		OccurredAt:     at,
	})
	require.NoError(t, err)
	require.Len(t, fake.msgs, 1)

	msg := fake.msgs[0]
	assert.Equal(t, mq.OrderExchange, msg.exchange)
	assert.Equal(t, "order.status.delivered", msg.key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.body, &body))
	assert.Equal(t, "o-7", body["order_id"])
	assert.Equal(t, "AE007", body["tracking_number"])
	assert.Equal(t, "2026-03-14T12:00:00Z", body["occurred_at"])
	assert.NotContains(t, body, "RoutingKey")
}

func TestPublishOrderEventErrors(t *testing.T) {
	fake := &fakeMQ{err: errors.New("channel closed")}
	p := NewOrderEventPublisher(fake, testLogger())

	err := p.PublishOrderEvent(context.Background(), out.OrderEvent{RoutingKey: out.RoutingOrderAccepted, OrderID: "o-7"})
	assert.ErrorContains(t, err, "channel closed")

	err = p.PublishOrderEvent(context.Background(), out.OrderEvent{OrderID: "o-7"})
	assert.ErrorContains(t, err, "empty routing key")

	assert.NoError(t, NoopPublisher{}.PublishOrderEvent(context.Background(), out.OrderEvent{}))
}
