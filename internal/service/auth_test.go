package service

// Тесты сервисного слоя (internal/service/auth.go).
//
//  Проверяем:
//  - валидацию входов Register/Login/Logout;
//  - нормализацию username/email (TrimSpace + нижний регистр);
//  - маппинг ошибок storage -> service (NotFound / AlreadyExists / Internal);
//  - асимметрию загрузок: аватар фатален, обложка деградирует до пустой;
//  - ротацию refresh-токенов: вытесненный/сброшенный токен отклоняется;
//  - санитизацию результата (без password_hash и refresh_token).
//
// Подготовка окружения:
//   go test ./internal/service -v -race -count=1
//
// Примечание: моки сгенерированы в пакете /mocks (MockStorage, MockUploader).

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/config"
	"account-service/internal/media"
	"account-service/internal/models"
	"account-service/internal/storage"
	"account-service/mocks"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "account-service",
		Audience:        []string{"web"},
	}
}

func newServiceWithMocks(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockUploader, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockStorage(ctrl)
	mu := mocks.NewMockUploader(ctrl)
	s := New(ms, mu, testAuthConfig())
	return s, ms, mu, ctrl
}

// mustHash — bcrypt-хэш для фикстур.
func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// mustUser — быстрый хелпер для сборки пользователя.
func mustUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test User",
		PasswordHash: mustHash(t, password),
		AvatarURL:    "http://cdn.local/media/uploads/a.jpg",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func avatarFile() *media.File {
	return &media.File{Name: "avatar.jpg", ContentType: "image/jpeg", Content: []byte("jpeg-bytes")}
}

func coverFile() *media.File {
	return &media.File{Name: "cover.png", ContentType: "image/png", Content: []byte("png-bytes")}
}

// signRefresh — refresh-токен с произвольными iat/exp для сценариев
// просрочки и вытеснения.
func signRefresh(t *testing.T, cfg config.AuthConfig, uid uuid.UUID, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()

	claims := jwt.MapClaims{
		"uid": uid.String(),
		"sub": uid.String(),
		"iss": cfg.Issuer,
		"iat": jwt.NewNumericDate(issuedAt),
		"exp": jwt.NewNumericDate(issuedAt.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.RefreshSecret))
	require.NoError(t, err)
	return signed
}

// Валидация: любое пустое поле (после TrimSpace) -> ErrInvalidArgument.
func TestService_Register_ValidationErrors(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	base := RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: "secret",
		Avatar:   avatarFile(),
	}

	cases := []struct {
		name   string
		mutate func(in *RegisterInput)
	}{
		{"empty_full_name", func(in *RegisterInput) { in.FullName = "  " }},
		{"empty_email", func(in *RegisterInput) { in.Email = "" }},
		{"empty_username", func(in *RegisterInput) { in.Username = "\t" }},
		{"empty_password", func(in *RegisterInput) { in.Password = "   " }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)

			_, err := s.Register(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

// Валидация: без аватара регистрация отклоняется до любых загрузок.
func TestService_Register_AvatarRequired(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "jane@example.com").Return(nil, storage.ErrNotFound)

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: "secret",
		Avatar:   nil,
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Happy-path: нормализация регистра, bcrypt-хэш, санитизация результата.
func TestService_Register_OK(t *testing.T) {
	s, ms, mu, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	avatar := avatarFile()
	cover := coverFile()

	// Пре-чек и вставка работают с нормализованными значениями.
	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "jane@example.com").Return(nil, storage.ErrNotFound)
	mu.EXPECT().Upload(gomock.Any(), *avatar).Return("http://cdn.local/media/uploads/a.jpg", nil)
	mu.EXPECT().Upload(gomock.Any(), *cover).Return("http://cdn.local/media/uploads/c.png", nil)

	var saved models.User
	ms.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = *u
			return nil
		})
	ms.EXPECT().UserByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID) (*models.User, error) {
			require.Equal(t, saved.ID, id)
			out := saved
			return &out, nil
		})

	got, err := s.Register(context.Background(), RegisterInput{
		FullName:   "  Jane Doe  ",
		Email:      "Jane@Example.COM",
		Username:   "JaneD",
		Password:   "secret",
		Avatar:     avatar,
		CoverImage: cover,
	})
	require.NoError(t, err)

	// Нормализация и медиа-ссылки.
	require.Equal(t, "janed", saved.Username)
	require.Equal(t, "jane@example.com", saved.Email)
	require.Equal(t, "Jane Doe", saved.FullName)
	require.Equal(t, "http://cdn.local/media/uploads/a.jpg", saved.AvatarURL)
	require.Equal(t, "http://cdn.local/media/uploads/c.png", saved.CoverImageURL)

	// Пароль хранится только в виде bcrypt-хэша.
	require.NotEqual(t, "secret", saved.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("secret")))

	// Наружу секретные поля не отдаются.
	require.Equal(t, saved.ID, got.ID)
	require.Empty(t, got.PasswordHash)
	require.Nil(t, got.RefreshToken)
}

// Пре-чек: занятый username/email -> ErrAlreadyExists без загрузок и вставки.
func TestService_Register_AlreadyExists_Precheck(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "jane@example.com").
		Return(mustUser(t, "janed", "secret"), nil)

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: "secret",
		Avatar:   avatarFile(),
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

// Гонка регистраций: уникальный констрейнт БД на вставке -> ErrAlreadyExists.
func TestService_Register_AlreadyExists_OnInsert(t *testing.T) {
	s, ms, mu, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().UserByLogin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	mu.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("http://cdn.local/a.jpg", nil)
	ms.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: "secret",
		Avatar:   avatarFile(),
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

// Неудачная загрузка аватара фатальна: ErrUploadFailed, вставки нет.
func TestService_Register_AvatarUploadFailed(t *testing.T) {
	s, ms, mu, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().UserByLogin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	mu.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("", errors.New("s3 down"))

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: "secret",
		Avatar:   avatarFile(),
	})
	require.ErrorIs(t, err, ErrUploadFailed)
}

// Неудачная загрузка обложки не валит регистрацию: cover_image_url пустой.
func TestService_Register_CoverUploadDegrades(t *testing.T) {
	s, ms, mu, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	avatar := avatarFile()
	cover := coverFile()

	ms.EXPECT().UserByLogin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	mu.EXPECT().Upload(gomock.Any(), *avatar).Return("http://cdn.local/a.jpg", nil)
	mu.EXPECT().Upload(gomock.Any(), *cover).Return("", errors.New("s3 flaky"))

	var saved models.User
	ms.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = *u
			return nil
		})
	ms.EXPECT().UserByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID) (*models.User, error) {
			out := saved
			return &out, nil
		})

	got, err := s.Register(context.Background(), RegisterInput{
		FullName:   "Jane Doe",
		Email:      "jane@example.com",
		Username:   "janed",
		Password:   "secret",
		Avatar:     avatar,
		CoverImage: cover,
	})
	require.NoError(t, err)
	require.Equal(t, "http://cdn.local/a.jpg", got.AvatarURL)
	require.Empty(t, got.CoverImageURL)
}

// Маппинг: сбой пре-чека (не NotFound) -> ErrInternal.
func TestService_Register_LookupFailure_Internal(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().UserByLogin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: "secret",
		Avatar:   avatarFile(),
	})
	require.ErrorIs(t, err, ErrInternal)
}

// Валидация: нужен хотя бы один идентификатор и пароль.
func TestService_Login_ValidationErrors(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	_, _, err := s.Login(context.Background(), LoginInput{Password: "secret"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = s.Login(context.Background(), LoginInput{Username: "janed"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Маппинг: storage.ErrNotFound -> ErrNotFound.
func TestService_Login_NotFound(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().UserByLogin(gomock.Any(), "ghost", "").Return(nil, storage.ErrNotFound)

	_, _, err := s.Login(context.Background(), LoginInput{Username: "Ghost", Password: "secret"})
	require.ErrorIs(t, err, ErrNotFound)
}

// Неверный пароль -> ErrInvalidCredentials; refresh-токен не трогаем
// (UpdateRefreshToken не ожидается).
func TestService_Login_WrongPassword(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := mustUser(t, "janed", "secret")
	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "").Return(user, nil)

	_, _, err := s.Login(context.Background(), LoginInput{Username: "janed", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

// Happy-path: пара токенов выпускается, refresh-токен замещается атомарно,
// пользователь возвращается без секретных полей.
func TestService_Login_OK(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := mustUser(t, "janed", "secret")

	var stored *string
	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "").Return(user, nil)
	ms.EXPECT().UpdateRefreshToken(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, token *string) (*models.User, error) {
			stored = token
			out := *user
			out.RefreshToken = token
			return &out, nil
		})

	got, pair, err := s.Login(context.Background(), LoginInput{Username: "JaneD", Password: "secret"})
	require.NoError(t, err)

	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotNil(t, stored)
	require.Equal(t, pair.RefreshToken, *stored)
	require.WithinDuration(t, time.Now().UTC().Add(s.cfg.AccessTokenTTL), pair.AccessExpiresAt, 5*time.Second)

	require.Equal(t, user.ID, got.ID)
	require.Empty(t, got.PasswordHash)
	require.Nil(t, got.RefreshToken)
}

// Маппинг: сбой записи refresh-токена -> ErrInternal.
func TestService_Login_PersistFailure_Internal(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := mustUser(t, "janed", "secret")
	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "").Return(user, nil)
	ms.EXPECT().UpdateRefreshToken(gomock.Any(), user.ID, gomock.Any()).Return(nil, errors.New("db down"))

	_, _, err := s.Login(context.Background(), LoginInput{Username: "janed", Password: "secret"})
	require.ErrorIs(t, err, ErrInternal)
}

// Пустой токен -> ErrInvalidToken без обращений к хранилищу.
func TestService_RefreshTokens_EmptyToken(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	_, err := s.RefreshTokens(context.Background(), "   ")
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Битый/чужой токен -> ErrInvalidToken.
func TestService_RefreshTokens_InvalidToken(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	// Мусор вместо JWT.
	_, err := s.RefreshTokens(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	// Подпись access-секретом вместо refresh-секрета.
	wrongSecret := testAuthConfig()
	wrongSecret.RefreshSecret = wrongSecret.AccessSecret
	token := signRefresh(t, wrongSecret, uuid.New(), time.Now().UTC(), time.Hour)

	_, err = s.RefreshTokens(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Просроченный refresh-токен -> ErrTokenExpired (за пределами leeway).
func TestService_RefreshTokens_Expired(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	token := signRefresh(t, testAuthConfig(), uuid.New(), time.Now().UTC().Add(-2*time.Hour), time.Hour)

	_, err := s.RefreshTokens(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

// Пользователь из токена не найден -> ErrInvalidToken.
func TestService_RefreshTokens_UserNotFound(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	uid := uuid.New()
	token := signRefresh(t, testAuthConfig(), uid, time.Now().UTC(), time.Hour)

	ms.EXPECT().UserByID(gomock.Any(), uid).Return(nil, storage.ErrNotFound)

	_, err := s.RefreshTokens(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Вытеснение: токен с валидной подписью, но не совпадающий с хранимым,
// отклоняется. Сюда же попадает refresh после logout (хранимый == NULL).
func TestService_RefreshTokens_Superseded(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	cfg := testAuthConfig()
	user := mustUser(t, "janed", "secret")

	oldToken := signRefresh(t, cfg, user.ID, time.Now().UTC().Add(-time.Minute), time.Hour)
	newToken := signRefresh(t, cfg, user.ID, time.Now().UTC(), time.Hour)
	require.NotEqual(t, oldToken, newToken)

	// Хранится более новый токен.
	user.RefreshToken = &newToken
	ms.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	_, err := s.RefreshTokens(context.Background(), oldToken)
	require.ErrorIs(t, err, ErrTokenSuperseded)

	// После logout хранимого токена нет вовсе.
	loggedOut := *user
	loggedOut.RefreshToken = nil
	ms.EXPECT().UserByID(gomock.Any(), user.ID).Return(&loggedOut, nil)

	_, err = s.RefreshTokens(context.Background(), newToken)
	require.ErrorIs(t, err, ErrTokenSuperseded)
}

// Happy-path: точное совпадение с хранимым -> новая пара, ротация хранимого.
func TestService_RefreshTokens_OK(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	cfg := testAuthConfig()
	user := mustUser(t, "janed", "secret")
	current := signRefresh(t, cfg, user.ID, time.Now().UTC().Add(-time.Minute), time.Hour)
	user.RefreshToken = &current

	var stored *string
	ms.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	ms.EXPECT().UpdateRefreshToken(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, token *string) (*models.User, error) {
			stored = token
			out := *user
			out.RefreshToken = token
			return &out, nil
		})

	pair, err := s.RefreshTokens(context.Background(), current)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotNil(t, stored)
	require.Equal(t, pair.RefreshToken, *stored)
}

// Валидация: userID == uuid.Nil -> ErrInvalidArgument.
func TestService_Logout_InvalidArgument(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	err := s.Logout(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Маппинг: storage.ErrNotFound -> ErrNotFound.
func TestService_Logout_NotFound(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	uid := uuid.New()
	ms.EXPECT().UpdateRefreshToken(gomock.Any(), uid, gomock.Nil()).Return(nil, storage.ErrNotFound)

	err := s.Logout(context.Background(), uid)
	require.ErrorIs(t, err, ErrNotFound)
}

// Happy-path: хранимый refresh-токен сбрасывается в NULL.
func TestService_Logout_OK(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	user := mustUser(t, "janed", "secret")
	ms.EXPECT().UpdateRefreshToken(gomock.Any(), user.ID, gomock.Nil()).Return(user, nil)

	require.NoError(t, s.Logout(context.Background(), user.ID))
}

// Пароль хэшируется ровно в том виде, в каком был отправлен: пользователь
// с пробелами по краям пароля входит той же строкой, что и при регистрации.
func TestService_Register_PasswordHashedAsSubmitted(t *testing.T) {
	s, ms, mu, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	const paddedPassword = "  secret1  "

	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "jane@example.com").Return(nil, storage.ErrNotFound)
	mu.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("http://cdn.local/a.jpg", nil)

	var saved models.User
	ms.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = *u
			return nil
		})
	ms.EXPECT().UserByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID) (*models.User, error) {
			out := saved
			return &out, nil
		})

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "janed",
		Password: paddedPassword,
		Avatar:   avatarFile(),
	})
	require.NoError(t, err)

	// Хэш совпадает с исходной строкой и не совпадает с обрезанной.
	require.True(t, checkPassword(saved.PasswordHash, paddedPassword))
	require.False(t, checkPassword(saved.PasswordHash, "secret1"))

	// Вход той же строкой проходит.
	ms.EXPECT().UserByLogin(gomock.Any(), "janed", "").Return(&saved, nil)
	ms.EXPECT().UpdateRefreshToken(gomock.Any(), saved.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, token *string) (*models.User, error) {
			out := saved
			out.RefreshToken = token
			return &out, nil
		})

	_, pair, err := s.Login(context.Background(), LoginInput{Username: "janed", Password: paddedPassword})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
}

// Свойство bcrypt: одинаковые пароли дают разные дайджесты, оба проверяемы.
func TestService_PasswordHashing_Properties(t *testing.T) {
	h1, err := hashPassword("secret")
	require.NoError(t, err)
	h2, err := hashPassword("secret")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.True(t, checkPassword(h1, "secret"))
	require.True(t, checkPassword(h2, "secret"))
	require.False(t, checkPassword(h1, "wrong"))
	require.False(t, checkPassword("not-a-bcrypt-hash", "secret"))
}
