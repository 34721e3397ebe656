package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/client/storage"
	"github.com/iudanet/legacyvault/internal/models"
)

func TestStorage_Envelope(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestAuthStorage(t)
	defer cleanup()

	envelope := &models.MasterKeyEnvelope{
		WrappedKey: models.EncryptedPayload{Ciphertext: "Y2lwaGVy", IV: "aXZpdml2aXZpdg=="},
		Salt:       "c2FsdHNhbHRzYWx0c2FsdA==",
		KDF:        models.KDFParams{Algorithm: models.KDFPBKDF2, Hash: models.HashSHA256, Iterations: 100000},
	}

	_, err := store.GetEnvelope(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrEnvelopeNotFound)

	require.NoError(t, store.SaveEnvelope(ctx, "alice", envelope))

	got, err := store.GetEnvelope(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, envelope, got)

	// конверты разных пользователей не пересекаются
	_, err = store.GetEnvelope(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrEnvelopeNotFound)

	require.NoError(t, store.DeleteEnvelope(ctx, "alice"))
	_, err = store.GetEnvelope(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrEnvelopeNotFound)

	// повторное удаление не ошибка
	assert.NoError(t, store.DeleteEnvelope(ctx, "alice"))

	assert.Error(t, store.SaveEnvelope(ctx, "alice", nil))
}
