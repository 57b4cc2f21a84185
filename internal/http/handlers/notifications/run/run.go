// Package run реализует ручной запуск задач планировщика уведомлений:
// напоминаний о задачах, уведомлений о просроченных записях и сброса флагов.
package run

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/juridico/internal/http/response"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/services/scheduler"
)

// Runner немедленно выполняет задачу планировщика.
type Runner interface {
	RunNow(ctx context.Context, name scheduler.JobName) (scheduler.Result, error)
}

// Handler запускает одну фиксированную задачу.
type Handler struct {
	log    *slog.Logger
	runner Runner
	job    scheduler.JobName
}

// New создает новый Handler для задачи job.
func New(log *slog.Logger, runner Runner, job scheduler.JobName) *Handler {
	return &Handler{
		log:    log,
		runner: runner,
		job:    job,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.run"
	log := h.log.With(
		slog.String("op", op),
		slog.String("job", string(h.job)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.runner.RunNow(r.Context(), h.job)
	switch {
	case err == nil:
	case errors.Is(err, scheduler.ErrJobRunning):
		log.Warn("job already running")
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("job is already running"))
		return
	case errors.Is(err, scheduler.ErrUnknownJob):
		log.Error("job is not registered", sl.Err(err))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown job"))
		return
	default:
		log.Error("manual job run failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("job failed"))
		return
	}

	log.Info("manual job run finished", slog.Any("result", res))
	render.JSON(w, r, response.OKWithData(res))
}
