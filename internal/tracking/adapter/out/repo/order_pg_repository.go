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

const orderColumns = `
	id::text, tracking_number, COALESCE(user_id, ''), status, amount::float8, payment_status,
	driver_id::text, driver_name, driver_phone, driver_vehicle_number,
	last_lat, last_lng, last_address, last_location_at,
	created_at, updated_at`

// scanner - общий интерфейс pgx.Row и pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// OrderPgRepository - PostgreSQL репозиторий заказов
type OrderPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewOrderPgRepository создает новый экземпляр репозитория
func NewOrderPgRepository(pool *pgxpool.Pool, log *logger.Logger) *OrderPgRepository {
	return &OrderPgRepository{
		pool: pool,
		log:  log,
	}
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                  domain.Order
		status             string
		driverID           *string
		dName, dPhone, dVN *string
		lat, lng           *float64
		address            *string
		locAt              *time.Time
	)

	err := row.Scan(
		&o.ID, &o.TrackingNumber, &o.UserID, &status, &o.Amount, &o.PaymentStatus,
		&driverID, &dName, &dPhone, &dVN,
		&lat, &lng, &address, &locAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	o.DriverID = driverID
	if driverID != nil {
		o.DriverDetails = &domain.DriverDetails{
			Name:          deref(dName),
			Phone:         deref(dPhone),
			VehicleNumber: deref(dVN),
		}
	}
	if lat != nil && lng != nil {
		o.LastKnownLocation = &domain.Location{
			Lat:     *lat,
			Lng:     *lng,
			Address: deref(address),
		}
		if locAt != nil {
			o.LastKnownLocation.UpdatedAt = *locAt
		}
	}
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FindByTrackingNumber возвращает заказ по номеру отслеживания
func (r *OrderPgRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tracking_number = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, trackingNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, r.fail("db_find_order_by_tracking_failed", "", fmt.Errorf("find order %s: %w", trackingNumber, err))
	}
	return o, nil
}

// FindByID возвращает заказ по ID
func (r *OrderPgRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if !utils.IsUUID(orderID) {
		return nil, domain.ErrOrderNotFound
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, r.fail("db_find_order_failed", orderID, fmt.Errorf("find order: %w", err))
	}
	return o, nil
}

// AssignDriver назначает водителя, только пока заказ в статусе pending.
// Из двух одновременных вызовов строку обновит ровно один.
func (r *OrderPgRepository) AssignDriver(ctx context.Context, orderID, driverID string, details domain.DriverDetails) (*domain.Order, error) {
	if !utils.IsUUID(orderID) {
		return nil, domain.ErrOrderNotFound
	}
	if !utils.IsUUID(driverID) {
		return nil, domain.ErrDriverNotFound
	}

	query := `
UPDATE orders
SET driver_id = $2,
    driver_name = $3,
    driver_phone = $4,
    driver_vehicle_number = $5,
    status = 'accepted',
    updated_at = NOW()
WHERE id = $1
  AND status = 'pending'
RETURNING ` + orderColumns

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, driverID, details.Name, details.Phone, details.VehicleNumber))
	if err == nil {
		r.log.Info(logger.Entry{
			Action:     "db_driver_assigned",
			Message:    fmt.Sprintf("driver %s assigned to order %s", driverID, o.TrackingNumber),
			OrderID:    orderID,
			Additional: map[string]any{"driver_id": driverID},
		})
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.fail("db_assign_driver_failed", orderID, fmt.Errorf("assign driver: %w", err))
	}

	// строка не обновлена: заказа нет или он уже не pending
	var status string
	err = r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, domain.ErrOrderNotFound
	case err != nil:
		return nil, r.fail("db_assign_driver_failed", orderID, fmt.Errorf("check order status: %w", err))
	default:
		return nil, fmt.Errorf("order %s is %s: %w", orderID, status, domain.ErrOrderNotPending)
	}
}

// UpdateStatus меняет статус заказа, назначенного driverID
func (r *OrderPgRepository) UpdateStatus(ctx context.Context, orderID, driverID string, status domain.OrderStatus) (*domain.Order, error) {
	if !utils.IsUUID(orderID) {
		return nil, domain.ErrOrderNotFound
	}

	query := `
UPDATE orders
SET status = $3,
    updated_at = NOW()
WHERE id = $1
  AND driver_id::text = $2
  AND status NOT IN ('delivered', 'cancelled')
RETURNING ` + orderColumns

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, driverID, string(status)))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.fail("db_update_order_status_failed", orderID, fmt.Errorf("update status: %w", err))
	}
	return nil, r.whyNotBound(ctx, orderID, driverID)
}

// UpdateDeliveryLocation сохраняет последнюю точку; accepted → in_transit
func (r *OrderPgRepository) UpdateDeliveryLocation(ctx context.Context, orderID, driverID string, loc domain.Location) (*domain.Order, error) {
	if !utils.IsUUID(orderID) {
		return nil, domain.ErrOrderNotFound
	}

	query := `
UPDATE orders
SET last_lat = $3,
    last_lng = $4,
    last_address = $5,
    last_location_at = $6,
    status = CASE WHEN status = 'accepted' THEN 'in_transit' ELSE status END,
    updated_at = NOW()
WHERE id = $1
  AND driver_id::text = $2
  AND status NOT IN ('delivered', 'cancelled')
RETURNING ` + orderColumns

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, driverID, loc.Lat, loc.Lng, loc.Address, loc.UpdatedAt))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.fail("db_update_order_location_failed", orderID, fmt.Errorf("update location: %w", err))
	}
	return nil, r.whyNotBound(ctx, orderID, driverID)
}

// whyNotBound объясняет, почему условный UPDATE не затронул строку
func (r *OrderPgRepository) whyNotBound(ctx context.Context, orderID, driverID string) error {
	var (
		assigned *string
		status   string
	)
	err := r.pool.QueryRow(ctx, `SELECT driver_id::text, status FROM orders WHERE id = $1`, orderID).Scan(&assigned, &status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrOrderNotFound
	case err != nil:
		return r.fail("db_check_order_binding_failed", orderID, fmt.Errorf("check binding: %w", err))
	case assigned == nil || *assigned != driverID:
		return domain.ErrNotBound
	case domain.OrderStatus(status).IsTerminal():
		return domain.ErrOrderClosed
	default:
		return domain.ErrNotBound
	}
}

// FindPending - pending заказы, созданные не раньше since, новые первыми
func (r *OrderPgRepository) FindPending(ctx context.Context, since time.Time, limit int) ([]domain.Order, error) {
	query := `
SELECT ` + orderColumns + `
FROM orders
WHERE status = 'pending'
  AND created_at >= $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, r.fail("db_find_pending_failed", "", fmt.Errorf("find pending: %w", err))
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, r.fail("db_scan_order_failed", "", fmt.Errorf("scan order: %w", err))
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("db_find_pending_failed", "", fmt.Errorf("iterate pending: %w", err))
	}
	return orders, nil
}

func (r *OrderPgRepository) fail(action, orderID string, err error) error {
	r.log.Error(logger.Entry{
		Action:  action,
		Message: err.Error(),
		OrderID: orderID,
		Error:   &logger.ErrObj{Msg: err.Error()},
	})
	return err
}
