package middlewarectx_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/juridico/internal/http/middlewarectx"
	"github.com/magabrotheeeer/juridico/internal/http/response"
	"github.com/magabrotheeeer/juridico/internal/lib/jwt"
	"github.com/magabrotheeeer/juridico/internal/services/entitlement"
)

type CheckerMock struct {
	mock.Mock
}

func (m *CheckerMock) Check(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	userID := uuid.New()
	valid, err := maker.GenerateToken(userID.String())
	require.NoError(t, err)
	badUID, err := maker.GenerateToken("not-a-uuid")
	require.NoError(t, err)
	foreign, err := jwt.NewJWTMaker("other", time.Hour).GenerateToken(userID.String())
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantCalled bool
	}{
		{name: "missing header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "foreign signature", authHeader: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "malformed user id", authHeader: "Bearer " + badUID, wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + valid, wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got, ok := middlewarectx.UserIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, userID, got)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(maker, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestPlanMiddleware(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		withUser   bool
		checkErr   error
		wantStatus int
		wantReason string
		wantCalled bool
	}{
		{name: "no user in context", wantStatus: http.StatusUnauthorized},
		{name: "allowed", withUser: true, wantStatus: http.StatusOK, wantCalled: true},
		{
			name:       "trial expired",
			withUser:   true,
			checkErr:   &entitlement.DeniedError{Reason: entitlement.ReasonTrialExpired},
			wantStatus: http.StatusPaymentRequired,
			wantReason: "TRIAL_EXPIRED",
		},
		{
			name:       "plan inactive",
			withUser:   true,
			checkErr:   &entitlement.DeniedError{Reason: entitlement.ReasonPlanInactive},
			wantStatus: http.StatusPaymentRequired,
			wantReason: "PLAN_INACTIVE",
		},
		{
			name:       "user not found",
			withUser:   true,
			checkErr:   &entitlement.DeniedError{Reason: entitlement.ReasonNotFound, Err: entitlement.ErrSubscriberNotFound},
			wantStatus: http.StatusNotFound,
			wantReason: "NOT_FOUND",
		},
		{
			name:       "datastore failure",
			withUser:   true,
			checkErr:   errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(CheckerMock)
			if tt.withUser {
				checker.On("Check", mock.Anything, userID).Return(tt.checkErr).Once()
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.withUser {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, userID))
			}
			rr := httptest.NewRecorder()
			middlewarectx.PlanMiddleware(checker, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantReason != "" {
				var body response.Response
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, response.StatusError, body.Status)
				assert.Equal(t, tt.wantReason, body.Reason)
			}
			checker.AssertExpectations(t)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(0.0001, 2, newNoopLogger())(next)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
