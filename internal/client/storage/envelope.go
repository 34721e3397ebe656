package storage

import (
	"context"

	"github.com/iudanet/legacyvault/internal/models"
)

// EnvelopeStorage кеширует конверт мастер-ключа, полученный с сервера.
// Конверт зашифрован, кеш не раскрывает мастер-ключ.
type EnvelopeStorage interface {
	// SaveEnvelope сохраняет конверт пользователя
	SaveEnvelope(ctx context.Context, username string, envelope *models.MasterKeyEnvelope) error

	// GetEnvelope возвращает конверт пользователя
	// Returns ErrEnvelopeNotFound if nothing cached
	GetEnvelope(ctx context.Context, username string) (*models.MasterKeyEnvelope, error)

	// DeleteEnvelope удаляет конверт пользователя
	DeleteEnvelope(ctx context.Context, username string) error
}
