package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
	"github.com/iudanet/legacyvault/internal/validation"
	"github.com/iudanet/legacyvault/pkg/api"
)

// errInvalidCredentials - общий ответ для неизвестного пользователя и неверного ключа
const errInvalidCredentials = "invalid credentials"

// AuthHandler - регистрация, вход и ротация сессий.
// Сервер хранит только хеш auth_key, мастер-пароль сюда не попадает.
type AuthHandler struct {
	responder
	users     storage.UserStorage
	sessions  storage.TokenStorage
	admins    map[string]struct{}
	now       func() time.Time
	jwtConfig JWTConfig
}

// AuthOption настраивает AuthHandler
type AuthOption func(*AuthHandler)

// WithAdminUsernames - пользователи, получающие роль admin при регистрации
func WithAdminUsernames(usernames ...string) AuthOption {
	return func(h *AuthHandler) {
		for _, name := range usernames {
			h.admins[name] = struct{}{}
		}
	}
}

func NewAuthHandler(logger *slog.Logger, users storage.UserStorage, sessions storage.TokenStorage, jwtConfig JWTConfig, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{
		responder: responder{logger: logger},
		users:     users,
		sessions:  sessions,
		jwtConfig: jwtConfig,
		admins:    make(map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register - POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if !h.decodeCredentials(w, r, &req, func() (string, string) { return req.Username, req.AuthKeyHash }) {
		return
	}
	if req.PublicSalt == "" {
		h.sendError(w, "public_salt is required", http.StatusBadRequest)
		return
	}

	user := &models.User{
		ID:          uuid.New().String(),
		Username:    req.Username,
		AuthKeyHash: req.AuthKeyHash,
		PublicSalt:  req.PublicSalt,
		Role:        h.roleFor(req.Username),
		CreatedAt:   h.now(),
	}

	err := h.users.CreateUser(ctx, user)
	switch {
	case errors.Is(err, storage.ErrUserAlreadyExists):
		h.logger.WarnContext(ctx, "username taken", slog.String("username", req.Username))
		h.sendError(w, "username already taken", http.StatusConflict)
		return
	case err != nil:
		h.internalError(ctx, w, "create user", err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role))

	h.sendJSON(w, api.RegisterResponse{UserID: user.ID, Message: "User registered successfully"}, http.StatusCreated)
}

// GetSalt - GET /api/v1/auth/salt/{username}.
// Соль нужна клиенту до входа, чтобы вывести auth_key из мастер-пароля.
func (h *AuthHandler) GetSalt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.PathValue("username")
	if err := validation.ValidateUsername(username); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		h.sendError(w, "user not found", http.StatusNotFound)
		return
	case err != nil:
		h.internalError(ctx, w, "get user", err)
		return
	}

	h.sendJSON(w, api.SaltResponse{PublicSalt: user.PublicSalt}, http.StatusOK)
}

// Login - POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if !h.decodeCredentials(w, r, &req, func() (string, string) { return req.Username, req.AuthKeyHash }) {
		return
	}

	user, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		h.internalError(ctx, w, "get user", err)
		return
	}
	if user == nil || !crypto.EqualHashes(user.AuthKeyHash, req.AuthKeyHash) {
		h.logger.WarnContext(ctx, "login rejected", slog.String("username", req.Username))
		h.sendError(w, errInvalidCredentials, http.StatusUnauthorized)
		return
	}

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		h.internalError(ctx, w, "issue tokens", err)
		return
	}

	if err := h.users.UpdateLastLogin(ctx, user.ID, h.now()); err != nil {
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	h.sendJSON(w, resp, http.StatusOK)
}

// Refresh - POST /api/v1/auth/refresh. Refresh token одноразовый:
// старый удаляется, клиент получает новую пару.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	presented, err := BearerToken(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	hash := crypto.HashToken(presented)

	stored, err := h.sessions.GetRefreshToken(ctx, hash)
	switch {
	case errors.Is(err, storage.ErrTokenNotFound):
		h.sendError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	case err != nil:
		h.internalError(ctx, w, "get refresh token", err)
		return
	}
	if h.now().After(stored.ExpiresAt) {
		h.logger.WarnContext(ctx, "expired refresh token presented", slog.String("user_id", stored.UserID))
		h.sendError(w, "refresh token expired", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		h.internalError(ctx, w, "get user", err)
		return
	}

	if err := h.sessions.DeleteRefreshToken(ctx, hash); err != nil {
		h.logger.WarnContext(ctx, "failed to delete rotated refresh token", slog.Any("error", err))
	}

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		h.internalError(ctx, w, "issue tokens", err)
		return
	}

	h.logger.DebugContext(ctx, "session rotated", slog.String("user_id", user.ID))
	h.sendJSON(w, resp, http.StatusOK)
}

// Logout - POST /api/v1/auth/logout, отзывает все refresh токены пользователя
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bearer, err := BearerToken(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	claims, err := ValidateAccessToken(h.jwtConfig, bearer)
	if err != nil {
		h.sendError(w, "invalid or expired access token", http.StatusUnauthorized)
		return
	}

	revoked, err := h.sessions.DeleteUserTokens(ctx, claims.UserID)
	if err != nil {
		h.internalError(ctx, w, "revoke sessions", err)
		return
	}

	h.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", claims.UserID),
		slog.Int("sessions_revoked", revoked))
	w.WriteHeader(http.StatusNoContent)
}

// decodeCredentials читает тело и проверяет username и auth_key_hash.
// При ошибке ответ уже отправлен.
func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request, dst any, fields func() (string, string)) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	username, authKeyHash := fields()
	if err := validation.ValidateUsername(username); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if authKeyHash == "" {
		h.sendError(w, "auth_key_hash is required", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *AuthHandler) roleFor(username string) string {
	if _, ok := h.admins[username]; ok {
		return models.RoleAdmin
	}
	return models.RoleUser
}

func (h *AuthHandler) internalError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.ErrorContext(ctx, "failed to "+op, slog.Any("error", err))
	h.sendError(w, "internal server error", http.StatusInternalServerError)
}

// issueTokens выпускает access JWT и refresh token; refresh хранится только хешем
func (h *AuthHandler) issueTokens(ctx context.Context, user *models.User) (*api.TokenResponse, error) {
	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, expiresAt, err := GenerateRefreshToken(h.jwtConfig)
	if err != nil {
		return nil, err
	}

	err = h.sessions.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: crypto.HashToken(refreshToken),
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: h.now(),
	})
	if err != nil {
		return nil, err
	}

	return &api.TokenResponse{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}
