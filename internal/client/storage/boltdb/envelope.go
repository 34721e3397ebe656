package boltdb

import (
	"context"
	"errors"

	"go.etcd.io/bbolt"

	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/models"
)

var _ storage.EnvelopeStorage = (*Storage)(nil)

// SaveEnvelope кеширует конверт мастер-ключа пользователя
func (s *Storage) SaveEnvelope(ctx context.Context, username string, envelope *models.MasterKeyEnvelope) error {
	if envelope == nil {
		return errors.New("envelope is nil")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, bucketEnvelopes, []byte(username), envelope)
	})
}

func (s *Storage) GetEnvelope(ctx context.Context, username string) (*models.MasterKeyEnvelope, error) {
	envelope := &models.MasterKeyEnvelope{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx, bucketEnvelopes, []byte(username), envelope, storage.ErrEnvelopeNotFound)
	})
	if err != nil {
		return nil, err
	}
	return envelope, nil
}

// DeleteEnvelope удаляет конверт; отсутствие конверта не ошибка
func (s *Storage) DeleteEnvelope(ctx context.Context, username string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteKey(tx, bucketEnvelopes, []byte(username), nil)
	})
}
