package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/juridico/internal/http/response"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
	"github.com/magabrotheeeer/juridico/internal/services/entitlement"
)

// EntitlementChecker проверяет тариф пользователя.
type EntitlementChecker interface {
	Check(ctx context.Context, userID uuid.UUID) error
}

// PlanMiddleware пропускает запрос, только если тариф пользователя действует.
//
//	401: в контексте нет пользователя;
//	404: пользователь не найден;
//	402: пробный период истёк или тариф неактивен;
//	500: ошибка хранилища.
func PlanMiddleware(checker EntitlementChecker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.PlanMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				log.Warn("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			err := checker.Check(r.Context(), userID)
			var denied *entitlement.DeniedError
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.As(err, &denied):
				log.Info("access denied by plan", slog.String("user_id", userID.String()), slog.String("reason", string(denied.Reason)))
				render.Status(r, deniedStatus(denied.Reason))
				render.JSON(w, r, response.Denied(deniedMessage(denied.Reason), string(denied.Reason)))
			default:
				log.Error("failed to check plan", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
			}
		})
	}
}

func deniedStatus(reason entitlement.Reason) int {
	if reason == entitlement.ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusPaymentRequired
}

func deniedMessage(reason entitlement.Reason) string {
	switch reason {
	case entitlement.ReasonNotFound:
		return "user not found"
	case entitlement.ReasonTrialExpired:
		return "trial period has expired, choose a plan to continue"
	default:
		return "plan is inactive, renew the subscription to continue"
	}
}
