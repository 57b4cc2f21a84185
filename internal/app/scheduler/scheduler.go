// Package scheduler содержит приложение планировщика уведомлений.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/juridico/internal/app/notifier"
	"github.com/magabrotheeeer/juridico/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Lifecycle запуск и остановка расписания.
type Lifecycle interface {
	Start() error
	Stop(ctx context.Context) error
}

// App представляет приложение планировщика.
type App struct {
	scheduler Lifecycle
	closer    func()
	logger    *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	components, err := notifier.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}
	return newApp(components.Scheduler, components.Close, logger), nil
}

func newApp(s Lifecycle, closer func(), logger *slog.Logger) *App {
	return &App{
		scheduler: s,
		closer:    closer,
		logger:    logger,
	}
}

// Run запускает расписание и блокируется до отмены ctx, после чего
// дожидается выполняющихся задач не дольше shutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	defer a.closer()

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.logger.Info("scheduler running, waiting for shutdown signal")

	<-ctx.Done()
	a.logger.Info("stopping scheduler")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}
