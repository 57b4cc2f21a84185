package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/juridico/internal/lib/jwt"
	"github.com/magabrotheeeer/juridico/internal/models"
	"github.com/magabrotheeeer/juridico/internal/services/entitlement"
	"github.com/magabrotheeeer/juridico/internal/services/scheduler"
)

type fakeDeps struct {
	checkErr error
	ran      []scheduler.JobName
}

func (f *fakeDeps) PingContext(context.Context) error { return nil }
func (f *fakeDeps) Check(context.Context, uuid.UUID) error { return f.checkErr }
func (f *fakeDeps) Name() string { return "smtp" }
func (f *fakeDeps) Verify(context.Context) error { return nil }
func (f *fakeDeps) Send(context.Context, models.Message) error { return nil }
func (f *fakeDeps) RunNow(_ context.Context, name scheduler.JobName) (scheduler.Result, error) {
	f.ran = append(f.ran, name)
	return scheduler.Result{Job: name}, nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newRouter(t *testing.T, f *fakeDeps) (http.Handler, string) {
	t.Helper()
	maker := jwt.NewJWTMaker("secret", time.Hour)
	token, err := maker.GenerateToken(uuid.NewString())
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterRoutes(r, Deps{
		Logger:   newNoopLogger(),
		DB:       f,
		Tokens:   maker,
		Checker:  f,
		Runner:   f,
		Verifier: f,
		Sender:   f,
	})
	return r, token
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		auth       bool
		checkErr   error
		wantStatus int
		wantJob    scheduler.JobName
	}{
		{name: "health открыт", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "metrics открыт", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "без токена", method: http.MethodPost, path: "/api/v1/notifications/tasks/run", wantStatus: http.StatusUnauthorized},
		{name: "запуск задач", method: http.MethodPost, path: "/api/v1/notifications/tasks/run", auth: true, wantStatus: http.StatusOK, wantJob: scheduler.JobTasks},
		{name: "запуск финансов", method: http.MethodPost, path: "/api/v1/notifications/financial/run", auth: true, wantStatus: http.StatusOK, wantJob: scheduler.JobFinancial},
		{name: "сброс", method: http.MethodPost, path: "/api/v1/notifications/reset", auth: true, wantStatus: http.StatusOK, wantJob: scheduler.JobReset},
		{name: "транспорт", method: http.MethodGet, path: "/api/v1/notifications/transport", auth: true, wantStatus: http.StatusOK},
		{
			name:       "пробный период истёк",
			method:     http.MethodPost,
			path:       "/api/v1/notifications/tasks/run",
			auth:       true,
			checkErr:   &entitlement.DeniedError{Reason: entitlement.ReasonTrialExpired},
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "ошибка проверки",
			method:     http.MethodGet,
			path:       "/api/v1/notifications/transport",
			auth:       true,
			checkErr:   errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeDeps{checkErr: tt.checkErr}
			router, token := newRouter(t, f)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantJob != "" {
				assert.Equal(t, []scheduler.JobName{tt.wantJob}, f.ran)
			} else {
				assert.Empty(t, f.ran)
			}
		})
	}
}
