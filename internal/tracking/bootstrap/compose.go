// ============================================================================
// BOOTSTRAP (Compose Root) - Tracking Service
// ============================================================================
//
// 📦 НАЗНАЧЕНИЕ:
// Точка сборки реле трекинга доставок. Здесь создается инфраструктура,
// реестры присутствия, роутер событий и HTTP/WebSocket вход.
//
// 🏗️ ПОТОК ДАННЫХ:
//
//   Mobile App ──WS──► ws.Hub ──► in_ws ──► usecase.Router ──► repo (PostgreSQL)
//                        ▲                       │
//                        └──── out_ws.Emitter ◄──┤
//                                                └──► out_amqp (RabbitMQ, опционально)
//
// 📚 ПОРЯДОК:
// 1. ИНФРАСТРУКТУРА: PostgreSQL + миграции, RabbitMQ (если включен), JWT
// 2. PRESENCE: Directory и Channels (только в памяти процесса)
// 3. АДАПТЕРЫ: репозитории, emitter, publisher
// 4. ROUTER: обработка событий
// 5. SERVER: /health, /ws, /api/v1/presence
// 6. SHUTDOWN: HTTP -> hub (ждет очистку соединений) -> MQ -> PostgreSQL
//
// ============================================================================

package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	db_conn "github.com/Shivikagarg999/sheduled-backend/internal/shared/db"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/mq"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/adapter/in/in_ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/adapter/in/transport"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/adapter/out/out_amqp"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/adapter/out/out_ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/adapter/out/repo"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/out"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/presence"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/usecase"
)

const shutdownTimeout = 10 * time.Second

// Run запускает Tracking Service и блокируется до отмены ctx
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "tracking_service_starting", Message: "initializing tracking service"})

	// ========================================================================
	// СЛОЙ 1: ИНФРАСТРУКТУРА
	// ========================================================================

	dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db_conn.Close(dbPool, log)

	if err := db_conn.Migrate(ctx, dbPool, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// RabbitMQ - только побочный канал для внешних потребителей
	var publisher out.EventPublisher = out_amqp.NoopPublisher{}
	if cfg.RabbitMQ.Enabled {
		mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal(logger.Entry{
				Action:  "rabbitmq_connection_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		defer mqConn.Close()

		if err := mq.SetupTopology(ctx, mqConn, log); err != nil {
			log.Fatal(logger.Entry{
				Action:  "rabbitmq_topology_setup_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		publisher = out_amqp.NewOrderEventPublisher(mqConn, log)
	} else {
		log.Info(logger.Entry{Action: "rabbitmq_disabled", Message: "order events will not be published"})
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// ========================================================================
	// СЛОЙ 2: PRESENCE + WEBSOCKET HUB
	// ========================================================================

	directory := presence.NewDirectory()
	channels := presence.NewChannels()

	hub := ws.NewHub(in_ws.NewAuthFunc(jwtService), cfg.Service.AllowedOrigins, log)

	// ========================================================================
	// СЛОЙ 3: АДАПТЕРЫ
	// ========================================================================

	orderRepo := repo.NewOrderPgRepository(dbPool, log)
	driverRepo := repo.NewDriverPgRepository(dbPool, log)
	emitter := out_ws.NewWsEmitter(hub, channels, log)

	// ========================================================================
	// СЛОЙ 4: ROUTER
	// ========================================================================

	router := usecase.NewRouter(
		orderRepo,
		driverRepo,
		emitter,
		publisher,
		directory,
		channels,
		usecase.Config{
			PendingWindow:      cfg.Tracking.PendingWindow,
			PendingLimit:       cfg.Tracking.PendingLimit,
			RequireDriverToken: cfg.Tracking.RequireDriverToken,
		},
		log,
	)

	trackingWS := in_ws.NewTrackingWSHandler(ctx, hub, router, log)

	// ========================================================================
	// СЛОЙ 5: HTTP СЕРВЕР
	// ========================================================================

	mux := http.NewServeMux()
	httpHandler := transport.NewHTTPHandler(directory, channels, hub, log)
	httpHandler.RegisterRoutes(mux, trackingWS.ServeWS, transport.JWTMiddleware(jwtService, log, auth.RoleAdmin))

	server := transport.NewHTTPServer(mux, cfg.Service.TrackingServicePort, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error(logger.Entry{
				Action:  "tracking_service_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	// пул и RabbitMQ закрываются defer'ами только после того,
	// как Disconnect каждого соединения записал водителя offline
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Error(logger.Entry{
			Action:  "hub_shutdown_incomplete",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	log.Info(logger.Entry{Action: "tracking_service_stopped", Message: "tracking service stopped"})
}
