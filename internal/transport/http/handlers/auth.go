package handlers

import (
	"io"
	"net/http"
	"time"

	"account-service/internal/media"
	"account-service/internal/models"
	"account-service/internal/service"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	// Лимит размера multipart-формы регистрации (аватар + обложка).
	maxUploadBytes = 32 << 20
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterUser регистрирует пользователя: поля формы + файлы avatar
// (обязателен) и coverImage (опционален). Успех — 201 с профилем без
// секретных полей.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, service.ErrInvalidArgument)
		return
	}

	input := service.RegisterInput{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     formFile(r, "avatar"),
		CoverImage: formFile(r, "coverImage"),
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, userFromModel(user), "user registered successfully")
}

// LoginUser аутентифицирует пользователя, ставит httpOnly-куки с токенами
// и возвращает пользователя вместе с парой токенов.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		writeError(w, service.ErrInvalidArgument)
		return
	}

	user, pair, err := h.service.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, loginResponse{
		User:         userFromModel(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

// RefreshToken выпускает новую пару токенов. Refresh-токен берётся из
// httpOnly-куки либо из тела запроса.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}

	if token == "" {
		var in refreshRequest
		// Тело опционально: его отсутствие эквивалентно пустому токену.
		if err := decodeStrict(r, &in); err == nil {
			token = in.RefreshToken
		}
	}

	pair, err := h.service.RefreshTokens(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
}

// LogoutUser сбрасывает серверный refresh-токен и чистит куки сессии.
// Требует аутентификации (см. Authenticate).
func (h *Handlers) LogoutUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, service.ErrInvalidToken)
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, nil, "user logged out successfully")
}

// setAuthCookies ставит обе куки сессии: httpOnly + secure, менять их
// может только сервер.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.cfg.AccessTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.cfg.RefreshTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
	})
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
		})
	}
}

// formFile читает файл из multipart-формы; отсутствие файла — не ошибка.
func formFile(r *http.Request, field string) *media.File {
	f, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil || len(content) == 0 {
		return nil
	}

	return &media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}
}
