package out

import (
	"context"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// OrderStore - интерфейс хранилища заказов
type OrderStore interface {
	// FindByTrackingNumber ищет заказ по номеру отслеживания (AE007)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Order, error)

	// FindByID ищет заказ по id
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)

	// UpdateStatus меняет статус, только если заказ назначен driverID.
	// ErrNotBound - назначен другому, ErrOrderClosed - уже закрыт.
	UpdateStatus(ctx context.Context, orderID, driverID string, status domain.OrderStatus) (*domain.Order, error)

	// AssignDriver назначает водителя, только если заказ еще pending.
	// Проигравший гонку получает ErrOrderNotPending.
	AssignDriver(ctx context.Context, orderID, driverID string, details domain.DriverDetails) (*domain.Order, error)

	// UpdateDeliveryLocation пишет последнюю точку и переводит accepted → in_transit
	UpdateDeliveryLocation(ctx context.Context, orderID, driverID string, loc domain.Location) (*domain.Order, error)

	// FindPending - pending заказы, созданные после since, новые первыми
	FindPending(ctx context.Context, since time.Time, limit int) ([]domain.Order, error)
}
