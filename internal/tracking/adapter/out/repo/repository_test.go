package repo

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	db_conn "github.com/Shivikagarg999/sheduled-backend/internal/shared/db"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/utils"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.NewLoggerWithWriter("repo-test", logger.LevelError, io.Discard)
}

// testPool подключается к TRACKING_TEST_DATABASE_URL и применяет миграции
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TRACKING_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TRACKING_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db_conn.Migrate(ctx, pool, testLogger()))
	return pool
}

func insertDriver(t *testing.T, pool *pgxpool.Pool, name string) string {
	t.Helper()
	id := utils.NewUUID()
	_, err := pool.Exec(context.Background(), `
INSERT INTO drivers (id, name, phone, vehicle_number, is_verified)
VALUES ($1, $2, $3, 'DXB-' || $2, TRUE)`, id, name, "+971-"+id[:8])
	require.NoError(t, err)
	return id
}

func insertOrder(t *testing.T, pool *pgxpool.Pool, createdAt time.Time) (string, string) {
	t.Helper()
	id := utils.NewUUID()
	tn := "AE-" + id[:8]
	_, err := pool.Exec(context.Background(), `
INSERT INTO orders (id, tracking_number, user_id, amount, created_at)
VALUES ($1, $2, 'u1', 45.50, $3)`, id, tn, createdAt)
	require.NoError(t, err)
	return id, tn
}

func TestInvalidIDsAreNotFound(t *testing.T) {
	orders := NewOrderPgRepository(nil, testLogger())
	drivers := NewDriverPgRepository(nil, testLogger())
	ctx := context.Background()

	_, err := orders.FindByID(ctx, "o-7")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = orders.AssignDriver(ctx, "o-7", utils.NewUUID(), domain.DriverDetails{})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = orders.AssignDriver(ctx, utils.NewUUID(), "d1", domain.DriverDetails{})
	assert.ErrorIs(t, err, domain.ErrDriverNotFound)
	_, err = orders.UpdateStatus(ctx, "nope", "d1", domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = drivers.FindByID(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrDriverNotFound)
	assert.ErrorIs(t, drivers.SetAvailability(ctx, "d1", true), domain.ErrDriverNotFound)
}

func TestOrderLifecyclePostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	orders := NewOrderPgRepository(pool, testLogger())

	driverID := insertDriver(t, pool, "Ravi")
	otherID := insertDriver(t, pool, "Omar")
	orderID, tn := insertOrder(t, pool, time.Now().Add(-time.Hour))

	o, err := orders.FindByTrackingNumber(ctx, tn)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, 45.5, o.Amount)
	assert.Nil(t, o.DriverID)

	o, err = orders.AssignDriver(ctx, orderID, driverID, domain.DriverDetails{Name: "Ravi", Phone: "+971", VehicleNumber: "DXB-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, o.Status)
	assert.True(t, o.AssignedTo(driverID))
	assert.Equal(t, "DXB-1", o.DriverDetails.VehicleNumber)

	_, err = orders.AssignDriver(ctx, orderID, otherID, domain.DriverDetails{})
	assert.ErrorIs(t, err, domain.ErrOrderNotPending)

	_, err = orders.UpdateDeliveryLocation(ctx, orderID, otherID, domain.Location{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, domain.ErrNotBound)

	at := time.Now().UTC().Truncate(time.Second)
	o, err = orders.UpdateDeliveryLocation(ctx, orderID, driverID, domain.Location{Lat: 25.2, Lng: 55.3, Address: "Marina", UpdatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInTransit, o.Status)
	require.NotNil(t, o.LastKnownLocation)
	assert.Equal(t, "Marina", o.LastKnownLocation.Address)
	assert.True(t, at.Equal(o.LastKnownLocation.UpdatedAt))

	o, err = orders.UpdateStatus(ctx, orderID, driverID, domain.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, o.Status)

	_, err = orders.UpdateStatus(ctx, orderID, driverID, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrOrderClosed)

	_, err = orders.FindByID(ctx, utils.NewUUID())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestConcurrentAssignPostgres(t *testing.T) {
	pool := testPool(t)
	orders := NewOrderPgRepository(pool, testLogger())

	drivers := []string{insertDriver(t, pool, "A"), insertDriver(t, pool, "B"), insertDriver(t, pool, "C")}
	orderID, _ := insertOrder(t, pool, time.Now())

	var wg sync.WaitGroup
	errs := make([]error, len(drivers))
	for i, d := range drivers {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			_, errs[i] = orders.AssignDriver(context.Background(), orderID, d, domain.DriverDetails{Name: d})
		}(i, d)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrOrderNotPending), err.Error())
	}
	assert.Equal(t, 1, wins)
}

func TestFindPendingPostgres(t *testing.T) {
	pool := testPool(t)
	orders := NewOrderPgRepository(pool, testLogger())

	recent, _ := insertOrder(t, pool, time.Now().Add(-time.Minute))
	old, _ := insertOrder(t, pool, time.Now().Add(-72*time.Hour))

	pending, err := orders.FindPending(context.Background(), time.Now().Add(-24*time.Hour), 1000)
	require.NoError(t, err)

	ids := make(map[string]bool, len(pending))
	for _, o := range pending {
		ids[o.ID] = true
		assert.Equal(t, domain.StatusPending, o.Status)
	}
	assert.True(t, ids[recent])
	assert.False(t, ids[old])
}

func TestDriverStorePostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	drivers := NewDriverPgRepository(pool, testLogger())

	id := insertDriver(t, pool, "Ravi")
	orderID, _ := insertOrder(t, pool, time.Now())
	conn := utils.NewUUID()

	require.NoError(t, drivers.SetConnection(ctx, id, &conn))
	require.NoError(t, drivers.SetAvailability(ctx, id, true))
	require.NoError(t, drivers.SetCurrentOrder(ctx, id, &orderID))
	require.NoError(t, drivers.UpdateLiveLocation(ctx, id, 55.3, 25.2))

	d, err := drivers.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, d.IsAvailable)
	assert.Equal(t, &conn, d.ConnectionID)
	assert.Equal(t, &orderID, d.CurrentOrderID)
	require.NotNil(t, d.Location)
	assert.Equal(t, 25.2, d.Location.Lat)
	assert.Equal(t, 55.3, d.Location.Lng)

	require.NoError(t, drivers.SetConnection(ctx, id, nil))
	require.NoError(t, drivers.SetCurrentOrder(ctx, id, nil))
	d, err = drivers.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, d.ConnectionID)
	assert.Nil(t, d.CurrentOrderID)

	assert.ErrorIs(t, drivers.SetAvailability(ctx, utils.NewUUID(), false), domain.ErrDriverNotFound)
}
