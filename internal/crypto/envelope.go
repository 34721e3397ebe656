package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// WrapKey шифрует мастер-ключ ключом, выведенным из парольной фразы.
// В результате только соль, параметры KDF и зашифрованный ключ.
func WrapKey(masterKey []byte, passphrase string, salt []byte, params models.KDFParams) (*models.MasterKeyEnvelope, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}

	wrapping, err := DeriveKey(passphrase, salt, params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wrapping key: %w", err)
	}
	defer Zero(wrapping)

	payload, err := Seal(wrapping, masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap master key: %w", err)
	}

	return &models.MasterKeyEnvelope{
		WrappedKey: *payload,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		KDF:        params,
	}, nil
}

// UnwrapKey восстанавливает мастер-ключ из конверта.
// Любая ошибка (неверный пароль, поврежденный конверт, неверная соль)
// возвращается как vaulterr.ErrAuthentication без уточнения причины.
func UnwrapKey(envelope *models.MasterKeyEnvelope, passphrase string, salt []byte) ([]byte, error) {
	if envelope == nil {
		return nil, vaulterr.ErrAuthentication
	}
	if salt == nil {
		decoded, err := base64.StdEncoding.DecodeString(envelope.Salt)
		if err != nil {
			return nil, vaulterr.ErrAuthentication
		}
		salt = decoded
	}

	wrapping, err := DeriveKey(passphrase, salt, envelope.KDF)
	if err != nil {
		return nil, vaulterr.ErrAuthentication
	}
	defer Zero(wrapping)

	masterKey, err := Open(wrapping, &envelope.WrappedKey)
	if err != nil {
		return nil, vaulterr.ErrAuthentication
	}
	if len(masterKey) != KeySize {
		Zero(masterKey)
		return nil, vaulterr.ErrAuthentication
	}
	return masterKey, nil
}
