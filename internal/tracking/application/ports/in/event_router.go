package in

import (
	"context"
	"encoding/json"

	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// EventRouter - входная точка для транспорта
type EventRouter interface {
	// Connect регистрирует новое соединение (еще анонимное)
	Connect(connID string, principal domain.Principal)

	// Handle обрабатывает одно входящее событие соединения.
	// Ошибку клиенту отправляет сам роутер, вызывающему она нужна для логов.
	Handle(ctx context.Context, connID, event string, data json.RawMessage) error

	// Disconnect выполняет очистку ровно один раз
	Disconnect(ctx context.Context, connID string)
}
