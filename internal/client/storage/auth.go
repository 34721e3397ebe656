package storage

import (
	"context"
)

// AuthStorage хранит локальную сессию клиента. Токены приходят сюда
// уже зашифрованными, слой хранения их не трогает.
type AuthStorage interface {
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth возвращает ErrAuthNotFound, если сессии нет
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth удаляет сессию при logout
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated - есть ли сессия с неистекшим сроком
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData - запись сессии.
// В хранилище токены лежат зашифрованными ключом учетной записи,
// расшифровка выполняется в слое auth.
type AuthData struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PublicSalt   string `json:"public_salt"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}
