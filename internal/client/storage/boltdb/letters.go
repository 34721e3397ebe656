package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/models"
)

var _ storage.LetterStorage = (*Storage)(nil)

// SaveLetter сохраняет или заменяет письмо. Открытый текст не принимается.
func (s *Storage) SaveLetter(ctx context.Context, letter *models.Letter) error {
	if letter == nil || letter.ID == "" {
		return errors.New("letter id is required")
	}
	if !letter.Encrypted {
		return storage.ErrLetterNotEncrypted
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, bucketLetters, []byte(letter.ID), letter)
	})
}

func (s *Storage) GetLetter(ctx context.Context, id string) (*models.Letter, error) {
	letter := &models.Letter{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx, bucketLetters, []byte(id), letter, storage.ErrLetterNotFound)
	})
	if err != nil {
		return nil, err
	}
	return letter, nil
}

// ListLetters возвращает письма в порядке ID
func (s *Storage) ListLetters(ctx context.Context, vaultID string) ([]*models.Letter, error) {
	var letters []*models.Letter
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketLetters)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			letter := &models.Letter{}
			if err := json.Unmarshal(v, letter); err != nil {
				return fmt.Errorf("failed to unmarshal letter %s: %w", k, err)
			}
			if vaultID == "" || letter.VaultID == vaultID {
				letters = append(letters, letter)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return letters, nil
}

func (s *Storage) DeleteLetter(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteKey(tx, bucketLetters, []byte(id), storage.ErrLetterNotFound)
	})
}
