package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

const (
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// TagSize - размер authentication tag AES-GCM
	TagSize = 16
)

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// Seal шифрует plaintext AES-256-GCM со свежим случайным IV.
// IV возвращается отдельно, tag входит в конец ciphertext.
func Seal(key, plaintext []byte) (*models.EncryptedPayload, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := RandomBytes(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	return &models.EncryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Open расшифровывает payload, созданный Seal.
// Любое повреждение ciphertext, IV или tag дает vaulterr.ErrIntegrity;
// частичный plaintext никогда не возвращается.
func Open(key []byte, payload *models.EncryptedPayload) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is nil: %w", vaulterr.ErrIntegrity)
	}
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil || len(nonce) != NonceSize {
		return nil, fmt.Errorf("malformed iv: %w", vaulterr.ErrIntegrity)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("malformed ciphertext: %w", vaulterr.ErrIntegrity)
	}
	if payload.AuthTag != "" {
		tag, err := base64.StdEncoding.DecodeString(payload.AuthTag)
		if err != nil {
			return nil, fmt.Errorf("malformed auth tag: %w", vaulterr.ErrIntegrity)
		}
		ciphertext = append(ciphertext, tag...)
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("ciphertext too short: %w", vaulterr.ErrIntegrity)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", vaulterr.ErrIntegrity)
	}
	return plaintext, nil
}

// Encrypt шифрует данные в компактный формат: nonce (12 bytes) + ciphertext + auth_tag (16 bytes).
// Используется для бинарных данных (файлы, локальный кеш клиента).
func Encrypt(plaintext, key []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext cannot be empty")
	}
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := RandomBytes(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal дописывает результат к nonce
	return aesGCM.Seal(nonce, nonce, plaintext, nil), nil
}

// EncryptToBase64 шифрует данные и возвращает результат в Base64
func EncryptToBase64(plaintext, key []byte) (string, error) {
	encrypted, err := Encrypt(plaintext, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Decrypt расшифровывает данные в формате Encrypt
func Decrypt(encrypted, key []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(encrypted) < NonceSize+TagSize {
		return nil, fmt.Errorf("encrypted data too short: %w", vaulterr.ErrIntegrity)
	}

	plaintext, err := aesGCM.Open(nil, encrypted[:NonceSize], encrypted[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", vaulterr.ErrIntegrity)
	}
	return plaintext, nil
}

// DecryptFromBase64 расшифровывает данные из Base64
func DecryptFromBase64(encryptedBase64 string, key []byte) ([]byte, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encryptedBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", vaulterr.ErrIntegrity)
	}
	return Decrypt(encrypted, key)
}
