package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/juridico/internal/app/scheduler"
	"github.com/magabrotheeeer/juridico/internal/config"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting notification scheduler",
		slog.String("env", cfg.Env),
		slog.String("tz", cfg.Timezone),
		slog.String("transport", cfg.Transport))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scheduler", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("scheduler stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("notification scheduler stopped gracefully")
}
