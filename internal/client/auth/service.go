package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/validation"
	pkgapi "github.com/iudanet/legacyvault/pkg/api"
)

// ErrNotAuthenticated - локальная сессия отсутствует
var ErrNotAuthenticated = errors.New("not authenticated, run 'legacyvault login' first")

// Service предоставляет функции авторизации
type Service struct {
	apiClient APIClient
	tokens    *TokenStore
	envelopes storage.EnvelopeStorage
	logger    *slog.Logger
	now       func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(apiClient APIClient, authStorage storage.AuthStorage, envelopes storage.EnvelopeStorage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		tokens:    NewTokenStore(authStorage),
		envelopes: envelopes,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID     string // UUID пользователя
	Username   string
	PublicSalt string // base64
}

// Register регистрирует нового пользователя.
// На сервер уходит только хеш auth_key и публичная соль.
func (s *Service) Register(ctx context.Context, username, masterPassword string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(masterPassword); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	publicSalt, err := crypto.GenerateSaltBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, username, publicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}
	defer crypto.Zero(keys.EncryptionKey)

	authKeyHash, err := crypto.HashAuthKey(keys.AuthKey)
	crypto.Zero(keys.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
		PublicSalt:  publicSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{
		UserID:     resp.UserID,
		Username:   username,
		PublicSalt: publicSalt,
	}, nil
}

// LoginResult содержит результат авторизации
type LoginResult struct {
	Username  string
	UserID    string
	ExpiresAt time.Time
}

// Login выполняет аутентификацию и сохраняет сессию.
// Токены сохраняются зашифрованными ключом учетной записи.
func (s *Service) Login(ctx context.Context, username, masterPassword string) (*LoginResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(masterPassword); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	saltResp, err := s.apiClient.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, username, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}
	defer crypto.Zero(keys.EncryptionKey)

	authKeyHash, err := crypto.HashAuthKey(keys.AuthKey)
	crypto.Zero(keys.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	authData := &storage.AuthData{
		Username:     username,
		UserID:       resp.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    expiresAt.Unix(),
	}
	if err := s.tokens.Save(ctx, authData, keys.EncryptionKey); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.DebugContext(ctx, "session saved", slog.String("username", username))

	return &LoginResult{
		Username:  username,
		UserID:    resp.UserID,
		ExpiresAt: expiresAt,
	}, nil
}

// Session расшифровывает сохраненную сессию.
// Просроченный access token обновляется через refresh token.
func (s *Service) Session(ctx context.Context, masterPassword string) (*storage.AuthData, error) {
	public, err := s.tokens.LoadPublic(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, public.Username, public.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}
	crypto.Zero(keys.AuthKey)
	defer crypto.Zero(keys.EncryptionKey)

	authData, err := s.tokens.Load(ctx, keys.EncryptionKey)
	if err != nil {
		// неверный пароль проявляется как ошибка расшифровки
		return nil, fmt.Errorf("failed to unlock session: %w", err)
	}

	if s.now().Unix() < authData.ExpiresAt {
		return authData, nil
	}
	return s.refresh(ctx, authData, keys.EncryptionKey)
}

// refresh обменивает refresh token и сохраняет новую пару
func (s *Service) refresh(ctx context.Context, authData *storage.AuthData, encryptionKey []byte) (*storage.AuthData, error) {
	resp, err := s.apiClient.Refresh(ctx, authData.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	updated := *authData
	updated.AccessToken = resp.AccessToken
	updated.RefreshToken = resp.RefreshToken
	updated.ExpiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()

	if err := s.tokens.Save(ctx, &updated, encryptionKey); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.DebugContext(ctx, "session refreshed", slog.String("username", updated.Username))
	return &updated, nil
}

// Status возвращает открытую часть сессии и признак неистекшего access token
func (s *Service) Status(ctx context.Context) (*storage.AuthData, bool, error) {
	public, err := s.tokens.LoadPublic(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, false, ErrNotAuthenticated
		}
		return nil, false, err
	}
	valid, err := s.tokens.IsAuthenticated(ctx)
	if err != nil {
		return nil, false, err
	}
	return public, valid, nil
}

// Logout выполняет выход из системы.
// accessToken может быть пустым: тогда сервер не уведомляется.
// Локальные данные удаляются всегда, даже если сервер недоступен.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	public, err := s.tokens.LoadPublic(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if accessToken != "" {
		if logoutErr := s.apiClient.Logout(ctx, accessToken); logoutErr != nil {
			s.logger.WarnContext(ctx, "failed to logout on server", slog.Any("error", logoutErr))
		}
	}

	if err := s.envelopes.DeleteEnvelope(ctx, public.Username); err != nil {
		s.logger.WarnContext(ctx, "failed to delete cached envelope", slog.Any("error", err))
	}
	if err := s.tokens.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return nil
}
