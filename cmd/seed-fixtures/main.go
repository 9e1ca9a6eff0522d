// seed-fixtures наполняет локальную БД водителем и ожидающими заказами
// для ручной проверки реле через websocat.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	db_conn "github.com/Shivikagarg999/sheduled-backend/internal/shared/db"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	orders := flag.Int("orders", 3, "number of pending orders")
	start := flag.Int("start", 1, "first tracking sequence (1 -> AE001)")
	phone := flag.String("phone", "+971500000001", "driver phone")
	password := flag.String("password", "driver123", "driver password")
	flag.Parse()

	log := logger.NewLogger("seed-fixtures")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fail(log, "config_load_failed", err)
	}
	pool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		fail(log, "db_connection_failed", err)
	}
	defer db_conn.Close(pool, log)

	if err := db_conn.Migrate(ctx, pool, log); err != nil {
		fail(log, "db_migration_failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fail(log, "password_hash_failed", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		fail(log, "tx_begin_failed", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	driverID := utils.NewUUID()
	err = tx.QueryRow(ctx, `
		INSERT INTO drivers (id, name, phone, email, password_hash, vehicle_type, vehicle_number, is_verified)
		VALUES ($1, 'Ravi Kumar', $2, 'ravi@sheduled.com', $3, 'bike', 'DXB-1', TRUE)
		ON CONFLICT (phone) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = NOW()
		RETURNING id::text
	`, driverID, *phone, string(hash)).Scan(&driverID)
	if err != nil {
		fail(log, "seed_driver_failed", err)
	}

	tracking := make([]string, 0, *orders)
	for i := 0; i < *orders; i++ {
		tn := utils.TrackingNumber(*start + i)
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, tracking_number, user_id, status, amount)
			VALUES ($1, $2, $3, 'pending', $4)
			ON CONFLICT (tracking_number) DO NOTHING
		`, utils.NewUUID(), tn, utils.NewUUID(), 25.0+float64(i))
		if err != nil {
			fail(log, "seed_order_failed", err)
		}
		tracking = append(tracking, tn)
	}

	if err := tx.Commit(ctx); err != nil {
		fail(log, "tx_commit_failed", err)
	}

	printSummary(ctx, pool, driverID, tracking)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func printSummary(ctx context.Context, q querier, driverID string, tracking []string) {
	fmt.Printf("\n✅ Fixtures ready\n\n")
	fmt.Printf("  Driver ID: %s\n", driverID)

	rows, err := q.Query(ctx, `
		SELECT id::text, tracking_number, status FROM orders
		WHERE tracking_number = ANY($1) ORDER BY tracking_number
	`, tracking)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list orders: %v\n", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id, tn, status string
		if err := rows.Scan(&id, &tn, &status); err != nil {
			fmt.Fprintf(os.Stderr, "scan order: %v\n", err)
			return
		}
		fmt.Printf("  %s  %s  %s\n", tn, id, status)
	}

	fmt.Printf("\n💡 Token: go run ./cmd/generate-jwt -role=DRIVER -user=%s\n\n", driverID)
}

func fail(log *logger.Logger, action string, err error) {
	log.Fatal(logger.Entry{
		Action:  action,
		Message: err.Error(),
		Error:   &logger.ErrObj{Msg: err.Error()},
	})
}
