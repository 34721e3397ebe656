package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

func TestWrapUnwrapKey(t *testing.T) {
	masterKey := testKey(t)
	salt, err := GenerateSalt()
	require.NoError(t, err)

	envelope, err := WrapKey(masterKey, "correct horse battery staple", salt, fastArgon2)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(salt), envelope.Salt)
	assert.Equal(t, fastArgon2, envelope.KDF)
	assert.NotContains(t, envelope.WrappedKey.Ciphertext, base64.StdEncoding.EncodeToString(masterKey))

	unwrapped, err := UnwrapKey(envelope, "correct horse battery staple", salt)
	require.NoError(t, err)
	assert.Equal(t, masterKey, unwrapped)

	// соль из самого конверта
	unwrapped, err = UnwrapKey(envelope, "correct horse battery staple", nil)
	require.NoError(t, err)
	assert.Equal(t, masterKey, unwrapped)
}

func TestUnwrapKey_FailuresAreIndistinguishable(t *testing.T) {
	masterKey := testKey(t)
	salt, err := GenerateSalt()
	require.NoError(t, err)

	envelope, err := WrapKey(masterKey, "right", salt, fastArgon2)
	require.NoError(t, err)

	corrupted := *envelope
	raw, err := base64.StdEncoding.DecodeString(corrupted.WrappedKey.Ciphertext)
	require.NoError(t, err)
	raw[0] ^= 0x01
	corrupted.WrappedKey.Ciphertext = base64.StdEncoding.EncodeToString(raw)

	otherSalt, err := GenerateSalt()
	require.NoError(t, err)

	weakened := *envelope
	weakened.KDF = models.KDFParams{Algorithm: models.KDFPBKDF2, Iterations: 1}

	tests := []struct {
		envelope   *models.MasterKeyEnvelope
		name       string
		passphrase string
		salt       []byte
	}{
		{name: "wrong passphrase", envelope: envelope, passphrase: "wrong", salt: salt},
		{name: "corrupt envelope", envelope: &corrupted, passphrase: "right", salt: salt},
		{name: "wrong salt", envelope: envelope, passphrase: "right", salt: otherSalt},
		{name: "weakened kdf", envelope: &weakened, passphrase: "right", salt: salt},
		{name: "nil envelope", envelope: nil, passphrase: "right", salt: salt},
		{name: "empty passphrase", envelope: envelope, passphrase: "", salt: salt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := UnwrapKey(tt.envelope, tt.passphrase, tt.salt)
			require.Error(t, err)
			assert.Equal(t, vaulterr.ErrAuthentication, err, "ошибка не должна раскрывать причину")
			assert.Nil(t, key)
		})
	}
}

func TestWrapKey_InvalidMasterKey(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	_, err = WrapKey([]byte("short"), "pw", salt, fastArgon2)
	assert.Error(t, err)
}
