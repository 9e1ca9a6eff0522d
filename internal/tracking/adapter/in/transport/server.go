package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
)

// Server - HTTP сервер Tracking Service
type Server struct {
	addr   string
	log    *logger.Logger
	server *http.Server
}

// NewHTTPServer оборачивает handler в RequestLogger
func NewHTTPServer(handler http.Handler, port int, log *logger.Logger) *Server {
	addr := ":" + strconv.Itoa(port)
	return &Server{
		addr: addr,
		log:  log,
		server: &http.Server{
			Addr:              addr,
			Handler:           RequestLogger(log, handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve блокируется до Shutdown
func (s *Server) Serve() error {
	s.log.Info(logger.Entry{
		Action:  "http_server_started",
		Message: "listening on " + s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error(logger.Entry{
			Action:  "http_server_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return err
	}
	return nil
}

// Shutdown ждет завершения активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error(logger.Entry{
			Action:  "http_server_shutdown_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return err
	}
	s.log.Info(logger.Entry{Action: "http_server_stopped", Message: "HTTP server stopped"})
	return nil
}
