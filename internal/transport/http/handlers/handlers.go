// handlers содержит HTTP-эндпоинты аккаунт-сервиса.
// Здесь выполняется только разбор запросов и маппинг данных/ошибок
// доменного слоя (service) в HTTP. Вся валидация и бизнес-логика — в service.
//
// Маппинг ошибок:
//   - ErrInvalidArgument/ErrUploadFailed -> 400;
//   - ErrNotFound -> 404;
//   - ErrAlreadyExists -> 409;
//   - ErrInvalidCredentials/ErrInvalidToken/ErrTokenExpired/ErrTokenSuperseded -> 401;
//   - прочее -> 500 c единым безопасным сообщением (детали только в логах).
//
// Формат ответа единый: {status_code, data?, message, success}.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/service"

	"github.com/google/uuid"
)

// Handlers агрегирует зависимости эндпоинтов.
type Handlers struct {
	service *service.Service
	cfg     config.AuthConfig
}

func New(svc *service.Service, cfg config.AuthConfig) *Handlers {
	return &Handlers{service: svc, cfg: cfg}
}

// apiResponse — единый конверт ответа.
type apiResponse struct {
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// userResponse — проекция пользователя для ответов: без password_hash
// и refresh_token.
type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func userFromModel(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// writeJSON — успешный ответ в едином конверте.
func writeJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// writeError — ответ об ошибке: статус и безопасное сообщение по сентинелу,
// стектрейсы и внутренние детали в тело не попадают.
func writeError(w http.ResponseWriter, err error) {
	status, message := statusFromError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
	})
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, service.ErrInvalidArgument.Error()
	case errors.Is(err, service.ErrUploadFailed):
		return http.StatusBadRequest, service.ErrUploadFailed.Error()
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, service.ErrAlreadyExists.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, service.ErrInvalidToken.Error()
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, service.ErrTokenExpired.Error()
	case errors.Is(err, service.ErrTokenSuperseded):
		return http.StatusUnauthorized, service.ErrTokenSuperseded.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

type userIDKey struct{}

// Authenticate — мидлвар аутентификации по access-токену: из httpOnly-куки
// или заголовка Authorization (Bearer). Кладёт userID в контекст запроса.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
			token = c.Value
		}

		if token == "" {
			const prefix = "Bearer "
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
				token = strings.TrimSpace(auth[len(prefix):])
			}
		}

		if token == "" {
			writeError(w, service.ErrInvalidToken)
			return
		}

		claims, err := h.service.ValidateToken(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext достаёт идентификатор аутентифицированного пользователя.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
