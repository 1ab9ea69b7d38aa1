package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя.
//
// Инварианты:
//   - Username и Email уникальны среди всех записей (регистронезависимо,
//     обеспечивается ограничениями БД) и хранятся в нижнем регистре;
//   - PasswordHash — только bcrypt-хэш, исходный пароль нигде не сохраняется;
//   - RefreshToken — либо nil, либо единственный действующий refresh-токен
//     пользователя: выпуск нового токена инвалидирует предыдущий.
type User struct {
	ID            uuid.UUID
	Username      string
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	// RefreshToken — последний выданный refresh-токен (nil после logout).
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized возвращает копию пользователя без секретных полей.
// Любой ответ наружу сервисного слоя собирается из такой копии:
// PasswordHash и RefreshToken не покидают сервис.
func (u User) Sanitized() *User {
	u.PasswordHash = ""
	u.RefreshToken = nil
	return &u
}
