package boltdb

import (
	"context"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/legacyvault/internal/client/storage"
)

// на клиенте одна активная сессия
var keyCurrentAuth = []byte("current")

var _ storage.AuthStorage = (*Storage)(nil)

func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, bucketAuth, keyCurrentAuth, auth)
	})
}

func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	auth := &storage.AuthData{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx, bucketAuth, keyCurrentAuth, auth, storage.ErrAuthNotFound)
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}

func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteKey(tx, bucketAuth, keyCurrentAuth, storage.ErrAuthNotFound)
	})
}

// IsAuthenticated - сессия есть и access token не истек
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	auth, err := s.GetAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Now().Unix() < auth.ExpiresAt, nil
}
