package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

func TestStorage_WithTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)

	errBoom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		if err := tx.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultUnlocked, time.Now()); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	got, err := s.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultLocked, got.Status, "rolled back")

	err = s.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		return tx.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultUnlocked, time.Now())
	})
	require.NoError(t, err)

	got, err = s.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultUnlocked, got.Status)
}

func TestStorage_WithTx_PanicRollsBack(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	vault := createTestVault(t, ctx, s, owner)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
			_ = tx.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultArchived, time.Now())
			panic("unexpected")
		})
	})

	got, err := s.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultLocked, got.Status)
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &Storage{db: db, queries: &queries{db: db}}, mock
}

func TestStorage_WithTx_Mock(t *testing.T) {
	ctx := context.Background()

	t.Run("begin failure", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin().WillReturnError(errors.New("locked"))

		err := s.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE vault_inheritances SET notifications_sent = 1")).
			WithArgs("rec-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("disk full"))

		err := s.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
			return tx.MarkNotificationsSent(ctx, "rec-1")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "commit")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE vault_tokens").WillReturnError(errors.New("io error"))
		mock.ExpectRollback()

		err := s.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
			return tx.IncrementTokenUsage(ctx, "tok", "heir", time.Now())
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "increment token usage")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueries_ErrorPaths_Mock(t *testing.T) {
	ctx := context.Background()

	t.Run("list vault tokens query error", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM vault_tokens").WillReturnError(errors.New("io error"))

		_, err := s.ListVaultTokens(ctx, "vault")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query vault tokens")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("append access log error", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec("INSERT INTO vault_access_logs").WillReturnError(errors.New("io error"))

		err := s.AppendAccessLog(ctx, &models.VaultAccessLog{ID: "log"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to append access log")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoke rows affected error", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec("UPDATE vault_tokens SET is_active = 0").
			WillReturnResult(sqlmock.NewErrorResult(errors.New("driver")))

		err := s.RevokeVaultToken(ctx, "vault", "tok")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rows affected")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
