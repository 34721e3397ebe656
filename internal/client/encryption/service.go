package encryption

import (
	"encoding/json"
	"fmt"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// TextCipher - часть Context, нужная сервису
type TextCipher interface {
	EncryptText(plaintext string) (*models.EncryptedPayload, error)
	DecryptText(payload *models.EncryptedPayload) (string, error)
	State() State
}

// Service шифрует и расшифровывает поля записей.
// Сетевых вызовов не делает.
type Service struct {
	cipher TextCipher
}

// NewService создает сервис поверх контекста шифрования
func NewService(cipher TextCipher) *Service {
	return &Service{cipher: cipher}
}

// field - ссылка на шифруемое поле записи
type field struct {
	value *string
	name  string
}

func letterFields(l *models.Letter) []field {
	return []field{
		{name: "title", value: &l.Title},
		{name: "salutation", value: &l.Salutation},
		{name: "body", value: &l.Body},
		{name: "signature", value: &l.Signature},
	}
}

func memoryFields(m *models.MemoryRecord) []field {
	return []field{
		{name: "title", value: &m.Title},
		{name: "description", value: &m.Description},
	}
}

// EncryptLetter возвращает копию письма с зашифрованными полями
func (s *Service) EncryptLetter(letter models.Letter) (models.Letter, error) {
	if s.cipher.State() != StateInitialized {
		return models.Letter{}, vaulterr.ErrVaultLocked
	}
	if letter.Encrypted {
		return letter, nil
	}
	ivs, err := s.encryptFields(letterFields(&letter))
	if err != nil {
		return models.Letter{}, fmt.Errorf("failed to encrypt letter: %w", err)
	}
	letter.EncryptionIV = ivs
	letter.Encrypted = true
	return letter, nil
}

// DecryptLetter - обратная операция к EncryptLetter.
// Незашифрованное письмо (или без IV) возвращается как есть, ключ для него не нужен.
func (s *Service) DecryptLetter(letter models.Letter) (models.Letter, error) {
	if !letter.Encrypted || letter.EncryptionIV == "" {
		return letter, nil
	}
	if s.cipher.State() != StateInitialized {
		return models.Letter{}, vaulterr.ErrVaultLocked
	}
	if err := s.decryptFields(letterFields(&letter), letter.EncryptionIV); err != nil {
		return models.Letter{}, fmt.Errorf("failed to decrypt letter: %w", err)
	}
	letter.EncryptionIV = ""
	letter.Encrypted = false
	return letter, nil
}

// EncryptMemory возвращает копию воспоминания с зашифрованными полями
func (s *Service) EncryptMemory(memory models.MemoryRecord) (models.MemoryRecord, error) {
	if s.cipher.State() != StateInitialized {
		return models.MemoryRecord{}, vaulterr.ErrVaultLocked
	}
	if memory.Encrypted {
		return memory, nil
	}
	ivs, err := s.encryptFields(memoryFields(&memory))
	if err != nil {
		return models.MemoryRecord{}, fmt.Errorf("failed to encrypt memory: %w", err)
	}
	memory.EncryptionIV = ivs
	memory.Encrypted = true
	return memory, nil
}

// DecryptMemory - обратная операция к EncryptMemory
func (s *Service) DecryptMemory(memory models.MemoryRecord) (models.MemoryRecord, error) {
	if !memory.Encrypted || memory.EncryptionIV == "" {
		return memory, nil
	}
	if s.cipher.State() != StateInitialized {
		return models.MemoryRecord{}, vaulterr.ErrVaultLocked
	}
	if err := s.decryptFields(memoryFields(&memory), memory.EncryptionIV); err != nil {
		return models.MemoryRecord{}, fmt.Errorf("failed to decrypt memory: %w", err)
	}
	memory.EncryptionIV = ""
	memory.Encrypted = false
	return memory, nil
}

// encryptFields шифрует непустые поля и возвращает JSON map {поле: iv}
func (s *Service) encryptFields(fields []field) (string, error) {
	ivs := make(map[string]string, len(fields))
	for _, f := range fields {
		if *f.value == "" {
			continue
		}
		payload, err := s.cipher.EncryptText(*f.value)
		if err != nil {
			return "", err
		}
		*f.value = payload.Ciphertext
		ivs[f.name] = payload.IV
	}

	data, err := json.Marshal(ivs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal iv map: %w", err)
	}
	return string(data), nil
}

func (s *Service) decryptFields(fields []field, rawIVs string) error {
	var ivs map[string]string
	if err := json.Unmarshal([]byte(rawIVs), &ivs); err != nil {
		return fmt.Errorf("malformed iv map: %w", vaulterr.ErrIntegrity)
	}

	for _, f := range fields {
		iv, ok := ivs[f.name]
		if !ok {
			if *f.value != "" {
				return fmt.Errorf("missing iv for %s: %w", f.name, vaulterr.ErrIntegrity)
			}
			continue
		}
		plaintext, err := s.cipher.DecryptText(&models.EncryptedPayload{Ciphertext: *f.value, IV: iv})
		if err != nil {
			return err
		}
		*f.value = plaintext
	}
	return nil
}
