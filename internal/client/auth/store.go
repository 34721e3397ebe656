package auth

import (
	"context"
	"fmt"

	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/crypto"
)

// TokenStore - слой шифрования между бизнес-логикой и хранилищем.
// Токены шифруются ключом учетной записи перед сохранением
// и расшифровываются при чтении.
type TokenStore struct {
	storage storage.AuthStorage
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(storage storage.AuthStorage) *TokenStore {
	return &TokenStore{
		storage: storage,
	}
}

// Save шифрует токены и передает данные в хранилище.
// encryptionKey должен быть 32 байта (выводится из master password).
func (s *TokenStore) Save(ctx context.Context, auth *storage.AuthData, encryptionKey []byte) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}

	encryptedAccessToken, err := crypto.EncryptToBase64([]byte(auth.AccessToken), encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefreshToken, err := crypto.EncryptToBase64([]byte(auth.RefreshToken), encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	// копируем структуру, чтобы не менять входящую
	authCopy := *auth
	authCopy.AccessToken = encryptedAccessToken
	authCopy.RefreshToken = encryptedRefreshToken

	return s.storage.SaveAuth(ctx, &authCopy)
}

// Load загружает данные и расшифровывает токены
func (s *TokenStore) Load(ctx context.Context, encryptionKey []byte) (*storage.AuthData, error) {
	storedAuth, err := s.storage.GetAuth(ctx)
	if err != nil {
		return nil, err
	}

	accessToken, err := crypto.DecryptFromBase64(storedAuth.AccessToken, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refreshToken, err := crypto.DecryptFromBase64(storedAuth.RefreshToken, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	auth := *storedAuth
	auth.AccessToken = string(accessToken)
	auth.RefreshToken = string(refreshToken)
	return &auth, nil
}

// LoadPublic возвращает данные без расшифровки (username, salt, срок действия)
func (s *TokenStore) LoadPublic(ctx context.Context) (*storage.AuthData, error) {
	storedAuth, err := s.storage.GetAuth(ctx)
	if err != nil {
		return nil, err
	}
	auth := *storedAuth
	auth.AccessToken = ""
	auth.RefreshToken = ""
	return &auth, nil
}

// Delete удаляет данные
func (s *TokenStore) Delete(ctx context.Context) error {
	return s.storage.DeleteAuth(ctx)
}

// IsAuthenticated проверяет валидность сохраненных данных по сроку действия токена
func (s *TokenStore) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.storage.IsAuthenticated(ctx)
}
