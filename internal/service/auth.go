package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"account-service/internal/media"
	"account-service/internal/models"
	"account-service/internal/pkg/log"
	"account-service/internal/pkg/redact"
	"account-service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput — входные данные регистрации. Avatar обязателен,
// CoverImage опционален.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

// LoginInput — вход по username или email (достаточно одного) и паролю.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Register регистрирует нового пользователя.
//
// Шаги:
//  1. все строковые поля обязательны (после TrimSpace) — иначе ErrInvalidArgument;
//  2. пре-чек занятости username/email — ErrAlreadyExists; финальную гарантию
//     даёт уникальный констрейнт БД на вставке (конкурентные регистрации);
//  3. аватар обязателен — ErrInvalidArgument; загрузка аватара фатальна
//     (ErrUploadFailed), неудачная загрузка обложки деградирует до пустой;
//  4. пароль хэшируется bcrypt'ом, username/email сохраняются в нижнем регистре;
//  5. созданная запись перечитывается и возвращается без секретных полей.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx).With("op", op)

	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))

	// Пароль по TrimSpace только проверяется на пустоту: хэшируется он
	// ровно в том виде, в каком был отправлен, иначе Login с тем же
	// значением не пройдёт сравнение.
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(input.Password) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	_, err := s.storage.UserByLogin(ctx, username, email)
	if err == nil {
		lg.Warn("user_already_exists", slog.String("email", redact.Email(email)))

		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("user_lookup_failed", slog.String("err", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if input.Avatar == nil {
		return nil, fmt.Errorf("%s: avatar is required: %w", op, ErrInvalidArgument)
	}

	avatarURL, err := s.media.Upload(ctx, *input.Avatar)
	if err != nil {
		lg.Error("avatar_upload_failed", slog.String("err", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, ErrUploadFailed)
	}

	// Обложка необязательна: неудачная загрузка не валит регистрацию.
	coverURL := ""
	if input.CoverImage != nil {
		url, err := s.media.Upload(ctx, *input.CoverImage)
		if err != nil {
			lg.Warn("cover_upload_failed", slog.String("err", err.Error()))
		} else {
			coverURL = url
		}
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		lg.Error("password_hash_failed", slog.String("err", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:            uuid.New(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hashedPassword,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		lg.Error("save_user_failed", slog.String("err", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	created, err := s.storage.UserByID(ctx, user.ID)
	if err != nil {
		lg.Error("created_user_reread_failed", slog.String("err", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	lg.Info("user_registered", slog.String("user_id", created.ID.String()))

	return created.Sanitized(), nil
}

// Login выполняет вход по username или email и паролю.
// На успехе выпускает новую пару токенов и атомарно замещает хранимый
// refresh-токен: любой выданный ранее refresh-токен перестаёт действовать.
func (s *Service) Login(ctx context.Context, input LoginInput) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx).With("op", op)

	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" && email == "" {
		return nil, nil, fmt.Errorf("%s: username or email is required: %w", op, ErrInvalidArgument)
	}

	if input.Password == "" {
		return nil, nil, fmt.Errorf("%s: password is required: %w", op, ErrInvalidArgument)
	}

	user, err := s.storage.UserByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !checkPassword(user.PasswordHash, input.Password) {
		lg.Warn("password_mismatch", slog.String("user_id", user.ID.String()))

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, updated, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in", slog.String("user_id", user.ID.String()))

	return updated.Sanitized(), pair, nil
}

// RefreshTokens обновляет пару токенов по refresh-токену.
//
// Ротация эффективна благодаря сравнению с хранимым значением по точному
// совпадению: старый refresh-токен с валидной подписью и сроком всё равно
// отклоняется (ErrTokenSuperseded), если его уже вытеснил более новый.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.RefreshTokens"

	lg := log.From(ctx).With("op", op)

	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := s.validateRefreshToken(refreshToken)
	if err != nil {
		lg.Warn("refresh_validate_failed", slog.String("token", redact.Token()))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		lg.Warn("refresh_superseded", slog.String("user_id", user.ID.String()))

		return nil, fmt.Errorf("%s: %w", op, ErrTokenSuperseded)
	}

	pair, _, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Logout сбрасывает хранимый refresh-токен пользователя в NULL:
// после выхода никакой ранее выданный refresh-токен не пройдёт сравнение.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx).With("op", op)

	if userID == uuid.Nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if _, err := s.storage.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("refresh_reset_failed", slog.String("err", err.Error()))

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	lg.Info("user_logged_out", slog.String("user_id", userID.String()))

	return nil
}

// issueTokenPair выпускает новую пару access+refresh и атомарно замещает
// refresh-токен на записи пользователя (одно поле, последняя запись выигрывает).
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	updated, err := s.storage.UpdateRefreshToken(ctx, user.ID, &refreshToken)
	if err != nil {
		log.From(ctx).Error("refresh_persist_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, updated, nil
}

// hashPassword хэширует пароль с помощью bcrypt (соль внутри, стоимость
// по умолчанию): одинаковые пароли дают разные дайджесты.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем. На битом дайджесте не паникует
// и не возвращает ошибку — просто false.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
