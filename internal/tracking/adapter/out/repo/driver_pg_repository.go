package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/utils"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DriverPgRepository - PostgreSQL репозиторий водителей
type DriverPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewDriverPgRepository создает новый экземпляр репозитория
func NewDriverPgRepository(pool *pgxpool.Pool, log *logger.Logger) *DriverPgRepository {
	return &DriverPgRepository{
		pool: pool,
		log:  log,
	}
}

// FindByID возвращает водителя по ID
func (r *DriverPgRepository) FindByID(ctx context.Context, driverID string) (*domain.Driver, error) {
	if !utils.IsUUID(driverID) {
		return nil, domain.ErrDriverNotFound
	}

	query := `
SELECT id::text, name, phone, email,
       vehicle_type, vehicle_number, vehicle_model, vehicle_color,
       is_available, is_verified, current_order_id::text, connection_id,
       location_lat, location_lng, location_updated_at
FROM drivers
WHERE id = $1`

	var (
		d        domain.Driver
		lat, lng *float64
		locAt    *time.Time
	)
	err := r.pool.QueryRow(ctx, query, driverID).Scan(
		&d.ID, &d.Name, &d.Phone, &d.Email,
		&d.Vehicle.Type, &d.Vehicle.Number, &d.Vehicle.Model, &d.Vehicle.Color,
		&d.IsAvailable, &d.IsVerified, &d.CurrentOrderID, &d.ConnectionID,
		&lat, &lng, &locAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDriverNotFound
		}
		return nil, r.fail("db_find_driver_failed", driverID, fmt.Errorf("find driver: %w", err))
	}

	if lat != nil && lng != nil {
		d.Location = &domain.Location{Lat: *lat, Lng: *lng}
		if locAt != nil {
			d.Location.UpdatedAt = *locAt
		}
	}
	return &d, nil
}

// SetAvailability меняет флаг is_available
func (r *DriverPgRepository) SetAvailability(ctx context.Context, driverID string, available bool) error {
	return r.exec(ctx, "db_set_driver_availability_failed", driverID,
		`UPDATE drivers SET is_available = $2, updated_at = NOW() WHERE id = $1`, available)
}

// SetCurrentOrder - nil очищает текущий заказ
func (r *DriverPgRepository) SetCurrentOrder(ctx context.Context, driverID string, orderID *string) error {
	return r.exec(ctx, "db_set_driver_current_order_failed", driverID,
		`UPDATE drivers SET current_order_id = $2, updated_at = NOW() WHERE id = $1`, orderID)
}

// UpdateLiveLocation сохраняет текущую позицию водителя
func (r *DriverPgRepository) UpdateLiveLocation(ctx context.Context, driverID string, lng, lat float64) error {
	return r.exec(ctx, "db_update_driver_location_failed", driverID,
		`UPDATE drivers
SET location_lat = $2, location_lng = $3, location_updated_at = NOW(), updated_at = NOW()
WHERE id = $1`, lat, lng)
}

// SetConnection - nil при отключении
func (r *DriverPgRepository) SetConnection(ctx context.Context, driverID string, connID *string) error {
	return r.exec(ctx, "db_set_driver_connection_failed", driverID,
		`UPDATE drivers SET connection_id = $2, updated_at = NOW() WHERE id = $1`, connID)
}

func (r *DriverPgRepository) exec(ctx context.Context, action, driverID, query string, args ...any) error {
	if !utils.IsUUID(driverID) {
		return domain.ErrDriverNotFound
	}

	result, err := r.pool.Exec(ctx, query, append([]any{driverID}, args...)...)
	if err != nil {
		return r.fail(action, driverID, fmt.Errorf("update driver: %w", err))
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDriverNotFound
	}
	return nil
}

func (r *DriverPgRepository) fail(action, driverID string, err error) error {
	r.log.Error(logger.Entry{
		Action:     action,
		Message:    err.Error(),
		Error:      &logger.ErrObj{Msg: err.Error()},
		Additional: map[string]any{"driver_id": driverID},
	})
	return err
}
