package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"

	trackingboot "github.com/Shivikagarg999/sheduled-backend/internal/tracking/bootstrap"
)

func main() {
	svc := flag.String("service", "tracking", "tracking")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("bootstrap").Fatal(logger.Entry{
			Action:  "config_load_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	switch *svc {
	case "tracking":
		log := logger.NewLogger("tracking-service")
		trackingboot.Run(ctx, cfg, log)

	default:
		log := logger.NewLogger("bootstrap")
		log.Fatal(logger.Entry{Action: "invalid_service", Message: *svc})
	}
}
