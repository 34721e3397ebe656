package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// HashAuthKey хеширует auth_key с использованием SHA256.
// auth_key уже защищен через Argon2id, SHA256 дает детерминированный verifier для сервера.
func HashAuthKey(authKey []byte) (string, error) {
	if len(authKey) == 0 {
		return "", fmt.Errorf("auth key cannot be empty")
	}

	hash := sha256.Sum256(authKey)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyAuthKey проверяет, соответствует ли auth_key сохраненному хешу
func VerifyAuthKey(authKey []byte, hashedAuthKey string) error {
	if len(authKey) == 0 {
		return fmt.Errorf("auth key cannot be empty")
	}
	if hashedAuthKey == "" {
		return fmt.Errorf("hashed auth key cannot be empty")
	}

	computedHash, err := HashAuthKey(authKey)
	if err != nil {
		return fmt.Errorf("failed to compute auth key hash: %w", err)
	}

	if !EqualHashes(computedHash, hashedAuthKey) {
		return fmt.Errorf("invalid auth key")
	}

	return nil
}

// EqualHashes сравнивает два hex-дайджеста за постоянное время.
// Строки разной длины сравниваются как sha256 от самих себя,
// чтобы время не зависело от длины.
func EqualHashes(a, b string) bool {
	if len(a) != len(b) {
		ha := sha256.Sum256([]byte(a))
		hb := sha256.Sum256([]byte(b))
		_ = subtle.ConstantTimeCompare(ha[:], hb[:])
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
