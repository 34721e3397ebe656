package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/iudanet/legacyvault/internal/models"
)

// Нижние границы параметров KDF. Все, что слабее, отклоняется.
const (
	MinPBKDF2Iterations = 100_000
	MinArgon2MemoryKiB  = 8 * 1024
	MinArgon2Iterations = 1
)

// DefaultKDFParams возвращает параметры для новых конвертов (argon2id)
func DefaultKDFParams() models.KDFParams {
	return models.KDFParams{
		Algorithm:  models.KDFArgon2id,
		Iterations: 3,
		MemoryKiB:  Argon2Memory,
		Threads:    Argon2Threads,
	}
}

// PBKDF2Params возвращает параметры PBKDF2 с указанной хеш-функцией.
// Используется для конвертов, созданных веб-клиентом.
func PBKDF2Params(iterations uint32, hashName string) models.KDFParams {
	return models.KDFParams{
		Algorithm:  models.KDFPBKDF2,
		Hash:       hashName,
		Iterations: iterations,
	}
}

// ValidateKDFParams проверяет, что параметры поддерживаются и не ослаблены
func ValidateKDFParams(p models.KDFParams) error {
	switch p.Algorithm {
	case models.KDFArgon2id:
		if p.Iterations < MinArgon2Iterations {
			return fmt.Errorf("argon2id iterations must be >= %d", MinArgon2Iterations)
		}
		if p.MemoryKiB < MinArgon2MemoryKiB {
			return fmt.Errorf("argon2id memory must be >= %d KiB", MinArgon2MemoryKiB)
		}
		if p.Threads == 0 {
			return fmt.Errorf("argon2id threads must be > 0")
		}
	case models.KDFPBKDF2:
		if p.Iterations < MinPBKDF2Iterations {
			return fmt.Errorf("PBKDF2 iterations must be >= %d", MinPBKDF2Iterations)
		}
		if _, err := pbkdf2Hash(p.Hash); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported KDF algorithm: %q", p.Algorithm)
	}
	return nil
}

// DeriveKey выводит 32-байтный ключ из парольной фразы и соли
func DeriveKey(passphrase string, salt []byte, p models.KDFParams) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("salt must be at least %d bytes, got %d", MinSaltSize, len(salt))
	}
	if err := ValidateKDFParams(p); err != nil {
		return nil, err
	}

	switch p.Algorithm {
	case models.KDFPBKDF2:
		h, _ := pbkdf2Hash(p.Hash)
		return pbkdf2.Key([]byte(passphrase), salt, int(p.Iterations), KeySize, h), nil
	default:
		return argon2.IDKey([]byte(passphrase), salt, p.Iterations, p.MemoryKiB, p.Threads, KeySize), nil
	}
}

func pbkdf2Hash(name string) (func() hash.Hash, error) {
	switch name {
	case models.HashSHA256, "":
		return sha256.New, nil
	case models.HashSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported PBKDF2 hash: %q", name)
	}
}
