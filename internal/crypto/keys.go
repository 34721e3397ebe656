package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Keys содержит производные ключи учетной записи
type Keys struct {
	AuthKey       []byte // ключ для аутентификации на сервере (32 bytes)
	EncryptionKey []byte // ключ для локального кеша клиента (32 bytes)
}

// Параметры Argon2id для ключей учетной записи
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// KeySize - длина симметричного ключа в байтах (AES-256)
	KeySize = 32
	// SaltSize - размер генерируемой соли в байтах
	SaltSize = 32
	// MinSaltSize - минимальный размер соли, принимаемый KDF (конверты веб-клиента используют 16)
	MinSaltSize = 16
)

// RandomBytes возвращает n криптографически случайных байт
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt, err := RandomBytes(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateSaltBase64 генерирует соль и возвращает ее в Base64
func GenerateSaltBase64() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// DeriveKeys выводит два независимых ключа учетной записи из master password.
// Один проход Argon2id, затем HKDF-SHA256 с разными info.
func DeriveKeys(masterPassword, username string, salt []byte) (*Keys, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("master password cannot be empty")
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	root := argon2.IDKey([]byte(masterPassword), salt, Argon2Time, Argon2Memory, Argon2Threads, KeySize)
	defer Zero(root)

	authKey, err := expand(root, username, "legacyvault/auth")
	if err != nil {
		return nil, err
	}
	encryptionKey, err := expand(root, username, "legacyvault/local-cache")
	if err != nil {
		return nil, err
	}

	return &Keys{
		AuthKey:       authKey,
		EncryptionKey: encryptionKey,
	}, nil
}

// DeriveKeysFromBase64Salt выводит ключи из Base64-кодированной соли
func DeriveKeysFromBase64Salt(masterPassword, username, saltBase64 string) (*Keys, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return DeriveKeys(masterPassword, username, salt)
}

func expand(root []byte, username, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, root, []byte(username), []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to expand key: %w", err)
	}
	return key, nil
}
