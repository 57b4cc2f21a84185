package run

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/juridico/internal/services/dispatcher"
	"github.com/magabrotheeeer/juridico/internal/services/scheduler"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunNow(ctx context.Context, name scheduler.JobName) (scheduler.Result, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(scheduler.Result), args.Error(1)
}

func TestRunHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		job            scheduler.JobName
		result         scheduler.Result
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "успешный запуск напоминаний",
			job:            scheduler.JobTasks,
			result:         scheduler.Result{Job: scheduler.JobTasks, Found: 3, Report: dispatcher.Report{Sent: 2, Failed: 1}},
			expectedStatus: http.StatusOK,
			expectedBody:   `"data":{"job":"tasks","found":3,"sent":2,"failed":1,"skipped":0,"reset":0}`,
		},
		{
			name:           "сброс флагов",
			job:            scheduler.JobReset,
			result:         scheduler.Result{Job: scheduler.JobReset, Reset: 5},
			expectedStatus: http.StatusOK,
			expectedBody:   `"reset":5`,
		},
		{
			name:           "задача уже выполняется",
			job:            scheduler.JobFinancial,
			err:            scheduler.ErrJobRunning,
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"job is already running"}`,
		},
		{
			name:           "ошибка сканирования",
			job:            scheduler.JobFinancial,
			err:            errors.New("scan financial_entry: db down"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"job failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("RunNow", mock.Anything, tt.job).Return(tt.result, tt.err).Once()

			rr := httptest.NewRecorder()
			New(logger, runner, tt.job).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			runner.AssertExpectations(t)
		})
	}
}
