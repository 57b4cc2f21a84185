package testmail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/juridico/internal/models"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestTestMailHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockSender)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная отправка с темой по умолчанию",
			body: `{"to":"ana@example.com"}`,
			setupMock: func(m *MockSender) {
				m.On("Send", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
					return msg.To == "ana@example.com" && msg.Subject == defaultSubject && msg.Text == defaultMessage
				})).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"data":{"to":"ana@example.com"}`,
		},
		{
			name: "html экранируется",
			body: `{"to":"ana@example.com","subject":"Oi","message":"<b>x</b>"}`,
			setupMock: func(m *MockSender) {
				m.On("Send", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
					return msg.HTML == "<p>&lt;b&gt;x&lt;/b&gt;</p>" && msg.Subject == "Oi"
				})).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "некорректный JSON",
			body:           `{"to":`,
			setupMock:      func(_ *MockSender) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "пустой адрес",
			body:           `{}`,
			setupMock:      func(_ *MockSender) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field To is a required field`,
		},
		{
			name:           "невалидный email",
			body:           `{"to":"ana"}`,
			setupMock:      func(_ *MockSender) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field To must be a valid email address`,
		},
		{
			name: "ошибка транспорта",
			body: `{"to":"ana@example.com"}`,
			setupMock: func(m *MockSender) {
				m.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp auth failed")).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `failed to send test email`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(MockSender)
			tt.setupMock(sender)

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			New(logger, sender).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			sender.AssertExpectations(t)
		})
	}
}
