package storage

import (
	"context"
	"errors"

	"account-service/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	// Уникальность username/email обеспечивает сама БД: нарушение ограничения
	// при вставке транслируется в ErrAlreadyExists (пре-чек на уровне сервиса
	// не защищает от конкурентной регистрации).
	SaveUser(ctx context.Context, user *models.User) error
	// UserByLogin находит пользователя по username ИЛИ email.
	UserByLogin(ctx context.Context, username, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateRefreshToken атомарно выставляет (или сбрасывает, token == nil)
	// refresh-токен пользователя одним UPDATE единственного поля:
	// никаких read-modify-write всей записи, последняя запись выигрывает.
	// Остальные поля (в том числе password_hash) не затрагиваются.
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) (*models.User, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	Close()
}
