package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и обновлении сессии.
//
// Описание:
//   - AccessToken — короткоживущий JWT с денормализованными полями профиля
//     (email, username, full_name) для stateless-авторизации запросов;
//   - RefreshToken — долгоживущий JWT только с идентификатором пользователя;
//     сервер хранит его значение на записи пользователя для точного сравнения;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}
