package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/legacyvault/internal/client/storage"
)

func TestStorage_AuthLifecycle(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestAuthStorage(t)
	defer cleanup()

	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	auth := &storage.AuthData{
		Username:     "margaret",
		UserID:       "user-id-123",
		AccessToken:  "encrypted-access-token",
		RefreshToken: "encrypted-refresh-token",
		PublicSalt:   "c2FsdA==",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, store.SaveAuth(ctx, auth))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)

	// новая сессия заменяет старую
	replaced := *auth
	replaced.Username = "emma_rose"
	require.NoError(t, store.SaveAuth(ctx, &replaced))
	got, err = store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "emma_rose", got.Username)

	require.NoError(t, store.DeleteAuth(ctx))
	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
	assert.ErrorIs(t, store.DeleteAuth(ctx), storage.ErrAuthNotFound)
}

func TestStorage_IsAuthenticated(t *testing.T) {
	tests := []struct {
		name      string
		auth      *storage.AuthData
		wantValid bool
	}{
		{name: "no session"},
		{name: "valid", auth: &storage.AuthData{Username: "u", ExpiresAt: time.Now().Add(time.Hour).Unix()}, wantValid: true},
		{name: "expired", auth: &storage.AuthData{Username: "u", ExpiresAt: time.Now().Add(-time.Hour).Unix()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, cleanup := createTestAuthStorage(t)
			defer cleanup()

			if tt.auth != nil {
				require.NoError(t, store.SaveAuth(ctx, tt.auth))
			}
			valid, err := store.IsAuthenticated(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, valid)
		})
	}
}

func TestStorage_Auth_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestAuthStorage(t)
	defer cleanup()

	require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketAuth)
	}))

	assert.ErrorContains(t, store.SaveAuth(ctx, &storage.AuthData{Username: "u"}), "auth bucket not found")
	_, err := store.GetAuth(ctx)
	assert.ErrorContains(t, err, "auth bucket not found")
	assert.ErrorContains(t, store.DeleteAuth(ctx), "auth bucket not found")
	_, err = store.IsAuthenticated(ctx)
	assert.Error(t, err)
}

func TestStorage_GetAuth_Corrupted(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestAuthStorage(t)
	defer cleanup()

	require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Put(keyCurrentAuth, []byte("{not json"))
	}))

	_, err := store.GetAuth(ctx)
	assert.ErrorContains(t, err, "failed to unmarshal auth record")
}
