// Package testmail реализует отправку тестового письма через настроенный транспорт.
package testmail

import (
	"context"
	"encoding/json"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/juridico/internal/http/response"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/models"
)

const (
	defaultSubject = "Teste de Email - Ali Software Jurídico"
	defaultMessage = "Este é um email de teste do sistema de notificações."
	sendTimeout    = 15 * time.Second
)

// Request тело запроса на тестовое письмо.
type Request struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject,omitempty" validate:"max=200"`
	Message string `json:"message,omitempty" validate:"max=5000"`
}

// Sender транспорт уведомлений.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

// Handler отправляет одно тестовое письмо.
type Handler struct {
	log      *slog.Logger
	sender   Sender
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, sender Sender) *Handler {
	return &Handler{
		log:      log,
		sender:   sender,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.testmail"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if ve, ok := err.(validator.ValidationErrors); ok {
			verrs = ve
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	if req.Subject == "" {
		req.Subject = defaultSubject
	}
	if req.Message == "" {
		req.Message = defaultMessage
	}
	msg := models.Message{
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Message,
		HTML:    "<p>" + html.EscapeString(req.Message) + "</p>",
	}

	ctx, cancel := context.WithTimeout(r.Context(), sendTimeout)
	defer cancel()
	if err := h.sender.Send(ctx, msg); err != nil {
		log.Error("failed to send test email", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("failed to send test email"))
		return
	}

	log.Info("test email sent", slog.String("to", req.To))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"to": req.To,
	}))
}
