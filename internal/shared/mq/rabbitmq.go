package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrChannelUnavailable - соединение закрыто или ещё не установлено
var ErrChannelUnavailable = errors.New("rabbitmq channel not available")

const (
	maxConnectAttempts = 10
	maxRetryDelay      = 30 * time.Second
	publishTimeout     = 5 * time.Second
)

// RabbitMQ - подключение к RabbitMQ с retry при старте
type RabbitMQ struct {
	url    string
	conn   *amqp.Connection
	ch     *amqp.Channel
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRabbitMQ подключается к брокеру, делая до maxConnectAttempts попыток
func NewRabbitMQ(ctx context.Context, cfg config.MQConfig, log *logger.Logger) (*RabbitMQ, error) {
	mq := &RabbitMQ{url: cfg.AMQPURL(), log: log}

	delay := time.Second
	for attempt := 1; ; attempt++ {
		err := mq.connect()
		if err == nil {
			log.Info(logger.Entry{
				Action:     "rabbitmq_connected",
				Message:    fmt.Sprintf("connected to %s:%d", cfg.Host, cfg.Port),
				Additional: map[string]any{"attempt": attempt},
			})
			return mq, nil
		}

		log.Warn(logger.Entry{
			Action:  "rabbitmq_connection_attempt_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"attempt":      attempt,
				"max_retries":  maxConnectAttempts,
				"retry_in_sec": delay.Seconds(),
			},
		})
		if attempt == maxConnectAttempts {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxConnectAttempts, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = nextDelay(delay)
	}
}

// nextDelay - экспоненциальная задержка x1.5 с потолком
func nextDelay(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * 1.5)
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func (mq *RabbitMQ) connect() error {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	mq.mu.Lock()
	mq.conn = conn
	mq.ch = ch
	mq.mu.Unlock()

	return nil
}

// Channel возвращает активный канал
func (mq *RabbitMQ) Channel() *amqp.Channel {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	if mq.closed {
		return nil
	}
	return mq.ch
}

// Publish публикует JSON сообщение в exchange
func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	ch := mq.Channel()
	if ch == nil {
		return ErrChannelUnavailable
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now().UTC(),
		},
	)
}

// Close закрывает подключение к RabbitMQ
func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return
	}
	mq.closed = true

	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}

	mq.log.Info(logger.Entry{Action: "rabbitmq_closed", Message: "connection closed"})
}
