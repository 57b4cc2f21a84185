// Package transport реализует проверку доступности транспорта уведомлений.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/juridico/internal/http/response"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
)

const verifyTimeout = 10 * time.Second

// Verifier транспорт, умеющий проверить соединение.
type Verifier interface {
	Verify(ctx context.Context) error
	Name() string
}

// Handler отвечает 200, если транспорт доступен, и 503 иначе.
type Handler struct {
	log      *slog.Logger
	verifier Verifier
}

// New создает новый Handler.
func New(log *slog.Logger, verifier Verifier) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.transport"
	log := h.log.With(
		slog.String("op", op),
		slog.String("transport", h.verifier.Name()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ctx, cancel := context.WithTimeout(r.Context(), verifyTimeout)
	defer cancel()
	if err := h.verifier.Verify(ctx); err != nil {
		log.Error("transport verification failed", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("notification transport unavailable"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"transport": h.verifier.Name(),
		"connected": true,
	}))
}
