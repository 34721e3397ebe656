package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/legacyvault/internal/client/api"
	"github.com/iudanet/legacyvault/internal/client/encryption"
	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
)

// ErrEncryptionNotSetUp - у пользователя еще нет конверта мастер-ключа
var ErrEncryptionNotSetUp = errors.New("encryption is not set up, run 'legacyvault setup' first")

// SetupEncryption создает мастер-ключ, заворачивает его парольной фразой
// и отправляет конверт на сервер. Сам ключ не покидает процесс.
func (s *Service) SetupEncryption(ctx context.Context, session *storage.AuthData, passphrase string, params models.KDFParams) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase cannot be empty")
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return err
	}

	keyCtx := encryption.NewContext()
	defer keyCtx.Clear()

	if err := keyCtx.Initialize(passphrase, salt, nil); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	envelope, err := keyCtx.WrapMasterKey(passphrase, salt, params)
	if err != nil {
		return fmt.Errorf("failed to wrap master key: %w", err)
	}

	if err := s.apiClient.SetupEncryption(ctx, session.AccessToken, envelope); err != nil {
		return fmt.Errorf("failed to store envelope: %w", err)
	}
	if err := s.envelopes.SaveEnvelope(ctx, session.Username, envelope); err != nil {
		s.logger.WarnContext(ctx, "failed to cache envelope", slog.Any("error", err))
	}
	return nil
}

// WithMasterKey распаковывает мастер-ключ и передает контекст в fn.
// Ключ затирается после выхода из fn на любом пути.
// Конверт берется из локального кеша, при отсутствии - с сервера.
func (s *Service) WithMasterKey(ctx context.Context, session *storage.AuthData, passphrase string, fn func(*encryption.Context) error) error {
	envelope, err := s.envelope(ctx, session)
	if err != nil {
		return err
	}
	return encryption.Open(passphrase, nil, envelope, fn)
}

func (s *Service) envelope(ctx context.Context, session *storage.AuthData) (*models.MasterKeyEnvelope, error) {
	envelope, err := s.envelopes.GetEnvelope(ctx, session.Username)
	if err == nil {
		return envelope, nil
	}
	if !errors.Is(err, storage.ErrEnvelopeNotFound) {
		return nil, fmt.Errorf("failed to read cached envelope: %w", err)
	}

	envelope, err = s.apiClient.GetEnvelope(ctx, session.AccessToken)
	if api.StatusCode(err) == http.StatusNotFound {
		return nil, ErrEncryptionNotSetUp
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch envelope: %w", err)
	}
	if envelope == nil {
		return nil, ErrEncryptionNotSetUp
	}
	if err := s.envelopes.SaveEnvelope(ctx, session.Username, envelope); err != nil {
		s.logger.WarnContext(ctx, "failed to cache envelope", slog.Any("error", err))
	}
	return envelope, nil
}
