// service содержит бизнес-логику аккаунт-сервиса:
// регистрацию с загрузкой медиа, вход по логину/паролю, ротацию
// refresh-токенов и выход — поверх интерфейсов storage и media.
//
// Основные аспекты:
//   - Экземпляр Service не хранит состояние запроса и безопасен для
//     конкурентного использования, если потокобезопасны зависимости;
//   - Хэш пароля и текущий refresh-токен никогда не покидают сервис:
//     наружу возвращаются только User.Sanitized()-копии;
//   - Ошибки возвращаются сентинелами и далее маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ниже).
package service

import (
	"errors"

	"account-service/internal/config"
	"account-service/internal/media"
	"account-service/internal/storage"
)

var (
	// ErrInvalidArgument — пустые/битые входные поля. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists — username или email уже заняты. HTTP 409.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrNotFound — пользователь не найден. HTTP 404.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials — пароль не совпал. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен отсутствует, некорректен по формату или подписи. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenSuperseded — предъявлен refresh-токен, вытесненный более новым
	// (или сброшенный logout'ом): подпись и срок валидны, но значение не
	// совпадает с хранимым. HTTP 401.
	ErrTokenSuperseded = errors.New("token expired or superseded")

	// ErrUploadFailed — не удалось загрузить обязательный аватар. HTTP 400.
	ErrUploadFailed = errors.New("avatar upload failed")

	// ErrInternal — сбой хранилища/хэширования; деталей наружу не отдаём. HTTP 500.
	ErrInternal = errors.New("internal error")
)

// Service описывает бизнес-логику аккаунт-сервиса.
type Service struct {
	storage storage.Storage
	media   media.Uploader
	cfg     config.AuthConfig
}

// New создаёт новый экземпляр Service. Все зависимости передаются явно:
// никаких глобальных синглтонов, конструктор вызывается один раз при старте.
func New(storage storage.Storage, media media.Uploader, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		media:   media,
		cfg:     cfg,
	}
}
