package db_conn

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName  = "sheduled-tracking"
	maxPingAttempts  = 5
	pingTimeout      = 3 * time.Second
	firstPingBackoff = 500 * time.Millisecond
)

// poolConfig - пул под нагрузку реле: короткие одиночные запросы,
// всплеск записей при массовом отключении, долгие паузы ночью
func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnLifetimeJitter = 5 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	// видно в pg_stat_activity
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	return poolCfg, nil
}

// NewPool создает пул и ждет, пока БД начнет отвечать
func NewPool(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	backoff := firstPingBackoff
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}

		log.Warn(logger.Entry{
			Action:     "db_ping_failed",
			Message:    err.Error(),
			Additional: map[string]any{"attempt": attempt, "retry_in_ms": backoff.Milliseconds()},
		})
		if attempt == maxPingAttempts {
			pool.Close()
			return nil, fmt.Errorf("ping db after %d attempts: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	log.Info(logger.Entry{
		Action:  "db_connected",
		Message: fmt.Sprintf("connected to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database),
		Additional: map[string]any{
			"max_conns": poolCfg.MaxConns,
		},
	})

	return pool, nil
}

// Close закрывает пул. Вызывать после остановки hub, иначе теряются записи Disconnect.
func Close(pool *pgxpool.Pool, log *logger.Logger) {
	if pool == nil {
		return
	}
	stat := pool.Stat()
	pool.Close()
	log.Info(logger.Entry{
		Action:     "db_closed",
		Message:    "database pool closed",
		Additional: map[string]any{"acquired_at_close": stat.AcquiredConns()},
	})
}
