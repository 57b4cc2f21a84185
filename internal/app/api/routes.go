// Package api предоставляет HTTP приложение: ручной запуск задач
// уведомлений, проверку транспорта и тестовое письмо.
package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/juridico/internal/http/handlers/health"
	"github.com/magabrotheeeer/juridico/internal/http/handlers/notifications/run"
	"github.com/magabrotheeeer/juridico/internal/http/handlers/notifications/testmail"
	"github.com/magabrotheeeer/juridico/internal/http/handlers/notifications/transport"
	"github.com/magabrotheeeer/juridico/internal/http/middlewarectx"
	"github.com/magabrotheeeer/juridico/internal/services/scheduler"
)

// Deps зависимости маршрутов.
type Deps struct {
	Logger   *slog.Logger
	DB       health.Pinger
	Tokens   middlewarectx.TokenParser
	Checker  middlewarectx.EntitlementChecker
	Runner   run.Runner
	Verifier transport.Verifier
	Sender   testmail.Sender
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(d.Logger, d.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(d.Tokens, d.Logger))
		r.Use(middlewarectx.PlanMiddleware(d.Checker, d.Logger))
		r.Use(middlewarectx.RateLimitMiddleware(rate.Limit(5), 10, d.Logger))

		r.Post("/tasks/run", run.New(d.Logger, d.Runner, scheduler.JobTasks).ServeHTTP)
		r.Post("/financial/run", run.New(d.Logger, d.Runner, scheduler.JobFinancial).ServeHTTP)
		r.Post("/reset", run.New(d.Logger, d.Runner, scheduler.JobReset).ServeHTTP)
		r.Get("/transport", transport.New(d.Logger, d.Verifier).ServeHTTP)
		r.Post("/test", testmail.New(d.Logger, d.Sender).ServeHTTP)
	})
}
