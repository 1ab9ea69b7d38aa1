package handlers

// Unit-тесты маппинга ошибок и проекции пользователя (handlers.go).
// Сквозные сценарии эндпоинтов живут в тестах роутера (../router_test.go).

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"account-service/internal/models"
	"account-service/internal/service"
)

// Маппинг сентинелов service -> HTTP-статусы.
func TestStatusFromError_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid_argument", service.ErrInvalidArgument, http.StatusBadRequest},
		{"upload_failed", service.ErrUploadFailed, http.StatusBadRequest},
		{"already_exists", service.ErrAlreadyExists, http.StatusConflict},
		{"not_found", service.ErrNotFound, http.StatusNotFound},
		{"invalid_credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid_token", service.ErrInvalidToken, http.StatusUnauthorized},
		{"token_expired", service.ErrTokenExpired, http.StatusUnauthorized},
		{"token_superseded", service.ErrTokenSuperseded, http.StatusUnauthorized},
		{"internal", service.ErrInternal, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, message := statusFromError(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.NotEmpty(t, message)
		})
	}
}

// Обёрнутые ошибки распознаются через errors.Is.
func TestStatusFromError_WrappedSentinel(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("service.auth.Login: %w", service.ErrInvalidCredentials)
	status, message := statusFromError(wrapped)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, service.ErrInvalidCredentials.Error(), message)
}

// Внутренние детали не попадают в сообщение для клиента.
func TestStatusFromError_InternalDetailsHidden(t *testing.T) {
	t.Parallel()

	_, message := statusFromError(errors.New("pq: connection refused at 10.0.0.5"))
	require.Equal(t, "internal server error", message)
}

// Проекция пользователя не содержит секретных полей даже в сыром JSON.
func TestUserResponse_ExcludesSecrets(t *testing.T) {
	t.Parallel()

	token := "stored-refresh-token"
	u := &models.User{
		ID:           uuid.New(),
		Username:     "janed",
		Email:        "jane@example.com",
		FullName:     "Jane Doe",
		PasswordHash: "$2a$10$secret-hash",
		AvatarURL:    "http://cdn.local/a.jpg",
		RefreshToken: &token,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	raw, err := json.Marshal(userFromModel(u))
	require.NoError(t, err)

	body := string(raw)
	require.Contains(t, body, "janed")
	require.NotContains(t, body, "password")
	require.NotContains(t, body, "secret-hash")
	require.NotContains(t, body, "refresh_token")
	require.NotContains(t, body, token)
}
