package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

func createTestVaultToken(t *testing.T, ctx context.Context, s *Storage, vaultID string, created time.Time, maxUsages *int) *models.VaultToken {
	token := &models.VaultToken{
		ID:        uuid.New().String(),
		VaultID:   vaultID,
		TokenHash: uuid.New().String(),
		Type:      models.TokenPrimary,
		CreatedBy: "owner",
		CreatedAt: created,
		IsActive:  true,
		MaxUsages: maxUsages,
		Restrictions: models.TokenRestrictions{
			IPWhitelist: []string{"10.0.0.0/8"},
			Time:        &models.TimeRestrictions{AllowedHours: []int{9, 10}, Timezone: "Europe/Moscow"},
		},
	}
	require.NoError(t, s.CreateVaultToken(ctx, token))
	return token
}

func TestVaultTokenStorage_CreateAndList(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	now := time.Now()
	limit := 3

	first := createTestVaultToken(t, ctx, s, vault.ID, now.Add(-time.Hour), &limit)
	second := createTestVaultToken(t, ctx, s, vault.ID, now, nil)

	tokens, err := s.ListVaultTokens(ctx, vault.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, first.ID, tokens[0].ID)
	assert.Equal(t, second.ID, tokens[1].ID)

	got := tokens[0]
	assert.Equal(t, first.TokenHash, got.TokenHash)
	assert.Equal(t, models.TokenPrimary, got.Type)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.MaxUsages)
	assert.Equal(t, 3, *got.MaxUsages)
	assert.Nil(t, tokens[1].MaxUsages)
	assert.Equal(t, first.Restrictions, got.Restrictions)
	assert.Nil(t, got.LastUsedAt)
}

func TestVaultTokenStorage_ListActiveTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	now := time.Now()

	active := createTestVaultToken(t, ctx, s, vault.ID, now.Add(-2*time.Hour), nil)
	revoked := createTestVaultToken(t, ctx, s, vault.ID, now.Add(-time.Hour), nil)
	require.NoError(t, s.RevokeVaultToken(ctx, vault.ID, revoked.ID))

	expired := &models.VaultToken{
		ID: uuid.New().String(), VaultID: vault.ID, TokenHash: "expired", Type: models.TokenTemporary,
		CreatedBy: owner, CreatedAt: now, IsActive: true, ExpiresAt: timeRef(now.Add(-time.Minute)),
	}
	require.NoError(t, s.CreateVaultToken(ctx, expired))

	tokens, err := s.ListActiveTokens(ctx, now)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, active.ID, tokens[0].ID)
}

func TestVaultTokenStorage_IncrementTokenUsage(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	limit := 1
	token := createTestVaultToken(t, ctx, s, vault.ID, time.Now(), &limit)
	usedAt := time.Now()

	require.NoError(t, s.IncrementTokenUsage(ctx, token.ID, "heir-1", usedAt))

	err := s.IncrementTokenUsage(ctx, token.ID, "heir-2", usedAt)
	assert.ErrorIs(t, err, storage.ErrStaleState)

	tokens, err := s.ListVaultTokens(ctx, vault.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, 1, tokens[0].UsageCount)
	assert.Equal(t, "heir-1", tokens[0].LastUsedBy)
	require.NotNil(t, tokens[0].LastUsedAt)
	assert.WithinDuration(t, usedAt, *tokens[0].LastUsedAt, time.Second)
}

func TestVaultTokenStorage_IncrementTokenUsage_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	limit := 3
	token := createTestVaultToken(t, ctx, s, vault.ID, time.Now(), &limit)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.IncrementTokenUsage(ctx, token.ID, "heir", time.Now()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, successes)

	tokens, err := s.ListVaultTokens(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, tokens[0].UsageCount)
}

func TestVaultTokenStorage_RevokeVaultToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)
	other := createTestVault(t, ctx, s, owner)
	token := createTestVaultToken(t, ctx, s, vault.ID, time.Now(), nil)

	tests := []struct {
		wantError error
		name      string
		vaultID   string
		tokenID   string
	}{
		{
			name:      "token of another vault",
			vaultID:   other.ID,
			tokenID:   token.ID,
			wantError: storage.ErrVaultTokenNotFound,
		},
		{
			name:    "revoke own token",
			vaultID: vault.ID,
			tokenID: token.ID,
		},
		{
			name:      "unknown token",
			vaultID:   vault.ID,
			tokenID:   "missing",
			wantError: storage.ErrVaultTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.RevokeVaultToken(ctx, tt.vaultID, tt.tokenID)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}

	// отозванный токен нельзя использовать
	err := s.IncrementTokenUsage(ctx, token.ID, "heir", time.Now())
	assert.ErrorIs(t, err, storage.ErrStaleState)
}
