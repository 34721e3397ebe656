package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iudanet/legacyvault/internal/models"
)

// AppendAccessLog inserts immutable entry
func (q *queries) AppendAccessLog(ctx context.Context, entry *models.VaultAccessLog) error {
	query := `
		INSERT INTO vault_access_logs (id, vault_id, token_id, accessor_id, token_fingerprint,
			access_type, ip, user_agent, location, success, failure_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var vaultID any
	if entry.VaultID != "" {
		vaultID = entry.VaultID
	}

	_, err := q.db.ExecContext(ctx, query,
		entry.ID,
		vaultID,
		entry.TokenID,
		entry.AccessorID,
		entry.TokenFingerprint,
		string(entry.AccessType),
		entry.IP,
		entry.UserAgent,
		entry.Location,
		boolToInt(entry.Success),
		entry.FailureReason,
		utc(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to append access log: %w", err)
	}

	return nil
}

// ListAccessLogs returns most recent entries of vault, newest first
func (q *queries) ListAccessLogs(ctx context.Context, vaultID string, limit int) ([]*models.VaultAccessLog, error) {
	query := `
		SELECT id, vault_id, token_id, accessor_id, token_fingerprint, access_type,
			ip, user_agent, location, success, failure_reason, created_at
		FROM vault_access_logs
		WHERE vault_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := q.db.QueryContext(ctx, query, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access logs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*models.VaultAccessLog
	for rows.Next() {
		entry := &models.VaultAccessLog{}
		var (
			vault      sql.NullString
			accessType string
		)
		if err := rows.Scan(
			&entry.ID,
			&vault,
			&entry.TokenID,
			&entry.AccessorID,
			&entry.TokenFingerprint,
			&accessType,
			&entry.IP,
			&entry.UserAgent,
			&entry.Location,
			&entry.Success,
			&entry.FailureReason,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan access log: %w", err)
		}
		entry.VaultID = vault.String
		entry.AccessType = models.AccessType(accessType)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
