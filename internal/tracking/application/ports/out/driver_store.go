package out

import (
	"context"

	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// DriverStore - интерфейс хранилища водителей
type DriverStore interface {
	FindByID(ctx context.Context, driverID string) (*domain.Driver, error)

	SetAvailability(ctx context.Context, driverID string, available bool) error

	// SetCurrentOrder - nil снимает текущий заказ
	SetCurrentOrder(ctx context.Context, driverID string, orderID *string) error

	UpdateLiveLocation(ctx context.Context, driverID string, lng, lat float64) error

	// SetConnection - nil при отключении
	SetConnection(ctx context.Context, driverID string, connID *string) error
}
