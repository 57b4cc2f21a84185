package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/juridico/internal/app/notifier"
	"github.com/magabrotheeeer/juridico/internal/config"
	"github.com/magabrotheeeer/juridico/internal/lib/jwt"
	"github.com/magabrotheeeer/juridico/internal/services/entitlement"
)

type App struct {
	server     *http.Server
	logger     *slog.Logger
	components *notifier.Components
}

// New собирает зависимости и HTTP сервер. Планировщик не запускается:
// API использует его только для ручного запуска задач.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("jwt secret key is not set")
	}

	components, err := notifier.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}

	entOpts := []entitlement.Option{}
	if components.Cache != nil {
		entOpts = append(entOpts, entitlement.WithCache(components.Cache))
	}
	checker := entitlement.NewService(components.DB, logger.With(slog.String("component", "entitlement")), entOpts...)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Logger:   logger,
		DB:       components.DB.DB,
		Tokens:   jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Checker:  checker,
		Runner:   components.Scheduler,
		Verifier: components.Sender,
		Sender:   components.Sender,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		components: components,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.components.Close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}
