package handlers

import (
	"context"

	"github.com/iudanet/legacyvault/internal/models"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// UsernameKey ключ для хранения username в контексте
	UsernameKey contextKey = "username"
	// RoleKey ключ для хранения роли пользователя в контексте
	RoleKey contextKey = "role"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetUsername извлекает username из контекста запроса
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetActor собирает инициатора операции из данных, положенных AuthMiddleware
func GetActor(ctx context.Context) (models.Actor, bool) {
	userID, ok := GetUserID(ctx)
	if !ok {
		return models.Actor{}, false
	}
	role, _ := ctx.Value(RoleKey).(string)
	return models.Actor{UserID: userID, Admin: role == models.RoleAdmin}, true
}

// WithIdentity кладет данные аутентифицированного пользователя в контекст
func WithIdentity(ctx context.Context, claims *CustomClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UsernameKey, claims.Username)
	return context.WithValue(ctx, RoleKey, claims.Role)
}
