package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/bootstrap"
)

func main() {
	level := flag.String("log-level", "info", "debug|info|warn|error")
	logDir := flag.String("log-dir", "", "also write logs to this directory")
	flag.Parse()

	log, err := logger.NewLoggerWithOptions("tracking-service", *level, *logDir)
	if err != nil {
		logger.NewLogger("tracking-service").Fatal(logger.Entry{
			Action:  "logger_init_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "config_load_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	bootstrap.Run(ctx, cfg, log)
}
