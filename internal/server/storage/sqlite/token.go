package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

// Refresh токены хранятся только SHA-256 хешем; сам токен знает лишь клиент.

// SaveRefreshToken сохраняет токен; повторный хеш заменяет запись
func (q *queries) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token.TokenHash, token.UserID, utc(token.ExpiresAt), utc(token.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (q *queries) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := q.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, created_at FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash,
	).Scan(&token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, storage.ErrTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &token, nil
}

// DeleteRefreshToken удаляет использованный при ротации токен
func (q *queries) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return expectAffected(result, storage.ErrTokenNotFound)
}

// DeleteUserTokens отзывает все сессии пользователя и возвращает их число
func (q *queries) DeleteUserTokens(ctx context.Context, userID string) (int, error) {
	return q.deleteTokens(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
}

// DeleteExpiredTokens чистит токены, истекшие до now
func (q *queries) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	return q.deleteTokens(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, utc(now))
}

func (q *queries) deleteTokens(ctx context.Context, query string, arg any) (int, error) {
	result, err := q.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
