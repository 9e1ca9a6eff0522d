package mq

import (
	"context"
	"testing"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, nextDelay(time.Second))
	assert.Equal(t, maxRetryDelay, nextDelay(25*time.Second))
	assert.Equal(t, maxRetryDelay, nextDelay(maxRetryDelay))
}

func TestPublishWithoutChannel(t *testing.T) {
	mq := &RabbitMQ{log: logger.NewLogger("test")}

	err := mq.Publish(context.Background(), OrderExchange, "order.accepted", []byte(`{}`))
	assert.ErrorIs(t, err, ErrChannelUnavailable)

	mq.Close()
	mq.Close()
	assert.Nil(t, mq.Channel())
}
