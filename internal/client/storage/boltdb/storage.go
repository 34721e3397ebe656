// Package boltdb - локальное хранилище клиента на bbolt.
package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

// SchemaVersion - версия раскладки buckets, которую понимает клиент
const SchemaVersion = 1

var (
	bucketMeta      = []byte("meta")
	bucketAuth      = []byte("auth")
	bucketEnvelopes = []byte("envelopes")
	bucketLetters   = []byte("letters")

	keySchemaVersion = []byte("schema_version")
)

// ErrSchemaTooNew - база создана более новой версией клиента
var ErrSchemaTooNew = errors.New("local database was created by a newer client")

// Storage - хранилище клиента поверх одного файла bbolt
type Storage struct {
	db *bbolt.DB
}

// New открывает или создает базу по dbPath
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Timeout, чтобы второй процесс клиента не висел на flock
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return s, nil
}

// Close закрывает базу; повторный вызов ничего не делает
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает buckets и проверяет версию схемы
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketAuth, bucketEnvelopes, bucketLetters} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		raw := meta.Get(keySchemaVersion)
		if raw == nil {
			return meta.Put(keySchemaVersion, []byte(strconv.Itoa(SchemaVersion)))
		}
		version, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("corrupted schema version %q: %w", raw, err)
		}
		if version > SchemaVersion {
			return fmt.Errorf("%w: schema %d, supported %d", ErrSchemaTooNew, version, SchemaVersion)
		}
		return nil
	})
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

// putJSON сериализует v и пишет по ключу
func putJSON(tx *bbolt.Tx, name, key []byte, v any) error {
	b, err := bucket(tx, name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", name, err)
	}
	if err := b.Put(key, data); err != nil {
		return fmt.Errorf("failed to save %s record: %w", name, err)
	}
	return nil
}

// getJSON читает ключ в v; при отсутствии ключа возвращает notFound
func getJSON(tx *bbolt.Tx, name, key []byte, v any, notFound error) error {
	b, err := bucket(tx, name)
	if err != nil {
		return err
	}
	data := b.Get(key)
	if data == nil {
		return notFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s record: %w", name, err)
	}
	return nil
}

// deleteKey удаляет ключ; notFound == nil делает удаление идемпотентным
func deleteKey(tx *bbolt.Tx, name, key []byte, notFound error) error {
	b, err := bucket(tx, name)
	if err != nil {
		return err
	}
	if notFound != nil && b.Get(key) == nil {
		return notFound
	}
	if err := b.Delete(key); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", name, err)
	}
	return nil
}
