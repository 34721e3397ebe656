package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

const vaultTokenColumns = `id, vault_id, token_hash, token_type, is_active, usage_count, max_usages,
	expires_at, restrictions, created_by, created_at, last_used_at, last_used_by`

// CreateVaultToken inserts token metadata with hash
func (q *queries) CreateVaultToken(ctx context.Context, token *models.VaultToken) error {
	restrictions, err := encodeJSON(token.Restrictions)
	if err != nil {
		return err
	}

	var maxUsages any
	if token.MaxUsages != nil {
		maxUsages = *token.MaxUsages
	}

	query := `
		INSERT INTO vault_tokens (id, vault_id, token_hash, token_type, is_active, usage_count,
			max_usages, expires_at, restrictions, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.db.ExecContext(ctx, query,
		token.ID,
		token.VaultID,
		token.TokenHash,
		string(token.Type),
		boolToInt(token.IsActive),
		token.UsageCount,
		maxUsages,
		utcPtr(token.ExpiresAt),
		restrictions,
		token.CreatedBy,
		utc(token.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vault token: %w", err)
	}

	return nil
}

// ListVaultTokens returns all tokens of a vault ordered by creation
func (q *queries) ListVaultTokens(ctx context.Context, vaultID string) ([]*models.VaultToken, error) {
	query := `SELECT ` + vaultTokenColumns + ` FROM vault_tokens WHERE vault_id = ? ORDER BY created_at ASC, id ASC`
	return q.listVaultTokens(ctx, query, vaultID)
}

// ListActiveTokens returns active, non-expired tokens across all vaults ordered by created_at
func (q *queries) ListActiveTokens(ctx context.Context, now time.Time) ([]*models.VaultToken, error) {
	query := `
		SELECT ` + vaultTokenColumns + `
		FROM vault_tokens
		WHERE is_active = 1 AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at ASC, id ASC
	`
	return q.listVaultTokens(ctx, query, utc(now))
}

func (q *queries) listVaultTokens(ctx context.Context, query string, args ...any) ([]*models.VaultToken, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault tokens: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tokens []*models.VaultToken
	for rows.Next() {
		token := &models.VaultToken{}
		var (
			tokenType             string
			maxUsages             sql.NullInt64
			expiresAt, lastUsedAt sql.NullTime
			restrictions          string
		)

		if err := rows.Scan(
			&token.ID,
			&token.VaultID,
			&token.TokenHash,
			&tokenType,
			&token.IsActive,
			&token.UsageCount,
			&maxUsages,
			&expiresAt,
			&restrictions,
			&token.CreatedBy,
			&token.CreatedAt,
			&lastUsedAt,
			&token.LastUsedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vault token: %w", err)
		}

		token.Type = models.TokenType(tokenType)
		if maxUsages.Valid {
			limit := int(maxUsages.Int64)
			token.MaxUsages = &limit
		}
		token.ExpiresAt = timePtr(expiresAt)
		token.LastUsedAt = timePtr(lastUsedAt)
		if err := decodeJSON(restrictions, &token.Restrictions); err != nil {
			return nil, err
		}

		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tokens, nil
}

// IncrementTokenUsage atomically increments usage_count within ceiling
func (q *queries) IncrementTokenUsage(ctx context.Context, tokenID, usedBy string, at time.Time) error {
	query := `
		UPDATE vault_tokens
		SET usage_count = usage_count + 1, last_used_at = ?, last_used_by = ?
		WHERE id = ? AND is_active = 1 AND (max_usages IS NULL OR usage_count < max_usages)
	`

	result, err := q.db.ExecContext(ctx, query, utc(at), usedBy, tokenID)
	if err != nil {
		return fmt.Errorf("failed to increment token usage: %w", err)
	}

	return expectAffected(result, storage.ErrStaleState)
}

// RevokeVaultToken deactivates token
func (q *queries) RevokeVaultToken(ctx context.Context, vaultID, tokenID string) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE vault_tokens SET is_active = 0 WHERE id = ? AND vault_id = ?`,
		tokenID, vaultID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke vault token: %w", err)
	}

	return expectAffected(result, storage.ErrVaultTokenNotFound)
}
