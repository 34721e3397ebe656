package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
)

func TestAccessLogStorage_AppendAndList(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	base := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendAccessLog(ctx, &models.VaultAccessLog{
			ID:               uuid.New().String(),
			VaultID:          vault.ID,
			TokenID:          "token-1",
			AccessorID:       "heir",
			TokenFingerprint: "abcdef012345",
			AccessType:       models.AccessTokenUnlock,
			IP:               "10.0.0.1",
			Success:          i == 2,
			FailureReason:    "outside_allowed_hours",
			Timestamp:        base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// запись без хранилища (токен не найден)
	require.NoError(t, s.AppendAccessLog(ctx, &models.VaultAccessLog{
		ID:            uuid.New().String(),
		AccessType:    models.AccessTokenUnlock,
		FailureReason: "invalid_token",
		Timestamp:     base,
	}))

	entries, err := s.ListAccessLogs(ctx, vault.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Success, "newest first")
	assert.Equal(t, vault.ID, entries[0].VaultID)
	assert.Equal(t, models.AccessTokenUnlock, entries[0].AccessType)
	assert.Equal(t, "abcdef012345", entries[0].TokenFingerprint)

	limited, err := s.ListAccessLogs(ctx, vault.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	var orphan int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM vault_access_logs WHERE vault_id IS NULL`).Scan(&orphan))
	assert.Equal(t, 1, orphan)
}

func TestAccessLogStorage_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	entry := &models.VaultAccessLog{
		ID:         uuid.New().String(),
		VaultID:    vault.ID,
		AccessType: models.AccessOwnerOpen,
		Success:    true,
		Timestamp:  time.Now(),
	}
	require.NoError(t, s.AppendAccessLog(ctx, entry))

	_, err := s.DB().ExecContext(ctx, `UPDATE vault_access_logs SET success = 0 WHERE id = ?`, entry.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")
}
