// Package middlewarectx содержит HTTP middleware: проверку сессионного JWT,
// проверку тарифа подписчика и ограничение частоты запросов.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/juridico/internal/http/response"
	"github.com/magabrotheeeer/juridico/internal/lib/jwt"
	"github.com/magabrotheeeer/juridico/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserID ключ для uuid.UUID пользователя в контексте.
const UserID Key = "user_id"

// TokenParser проверяет сессионный токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// UserIDFromContext возвращает идентификатор пользователя, положенный JWTMiddleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// JWTMiddleware проверяет Bearer токен и кладёт в контекст идентификатор пользователя.
// При ошибке отвечает 401 Unauthorized.
func JWTMiddleware(tokens TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := tokens.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				log.Warn("token carries malformed user id", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, userID)
					next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
