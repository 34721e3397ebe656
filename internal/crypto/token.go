package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// MinTokenBytes - минимальная энтропия токена разблокировки
	MinTokenBytes = 32
	// DefaultTokenBytes - энтропия токенов, выдаваемых при создании хранилища
	DefaultTokenBytes = 64
	// fingerprintLen - длина префикса дайджеста в audit log
	fingerprintLen = 12
)

// IssueToken генерирует секрет токена разблокировки (hex).
// Сырое значение возвращается один раз и нигде не сохраняется.
func IssueToken(byteLength int) (string, error) {
	if byteLength < MinTokenBytes {
		return "", fmt.Errorf("token length must be >= %d bytes, got %d", MinTokenBytes, byteLength)
	}
	b, err := RandomBytes(byteLength)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken возвращает hex SHA-256 дайджест секрета для хранения
func HashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifyToken сравнивает hash(candidate) с сохраненным дайджестом за постоянное время.
// Несовпадение - ожидаемый исход, ошибки нет.
func VerifyToken(candidate, storedHash string) bool {
	candidateSum := sha256.Sum256([]byte(candidate))
	stored, err := hex.DecodeString(storedHash)
	if err != nil || len(stored) != sha256.Size {
		// сравнение все равно выполняется, чтобы время не зависело от формата
		stored = make([]byte, sha256.Size)
		subtle.ConstantTimeCompare(candidateSum[:], stored)
		return false
	}
	return subtle.ConstantTimeCompare(candidateSum[:], stored) == 1
}

// TokenFingerprint возвращает короткий префикс дайджеста для audit log
func TokenFingerprint(secret string) string {
	return HashToken(secret)[:fingerprintLen]
}
