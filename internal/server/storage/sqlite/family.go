package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

// UpsertFamilyAccess creates or replaces grant for (vault, heir)
func (q *queries) UpsertFamilyAccess(ctx context.Context, grant *models.VaultFamilyAccess) error {
	capabilities, err := encodeJSON(grant.Capabilities)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vault_family_access (id, vault_id, heir_id, role, capabilities, granted_by, granted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (vault_id, heir_id) DO UPDATE SET
			role = excluded.role,
			capabilities = excluded.capabilities,
			granted_by = excluded.granted_by,
			granted_at = excluded.granted_at
	`

	_, err = q.db.ExecContext(ctx, query,
		grant.ID,
		grant.VaultID,
		grant.HeirID,
		string(grant.Role),
		capabilities,
		grant.GrantedBy,
		utc(grant.GrantedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert family access: %w", err)
	}

	return nil
}

const familyColumns = `id, vault_id, heir_id, role, capabilities, granted_by, granted_at`

// GetFamilyAccess returns grant for (vault, heir)
func (q *queries) GetFamilyAccess(ctx context.Context, vaultID, heirID string) (*models.VaultFamilyAccess, error) {
	query := `SELECT ` + familyColumns + ` FROM vault_family_access WHERE vault_id = ? AND heir_id = ?`

	grant, err := scanFamilyAccess(q.db.QueryRowContext(ctx, query, vaultID, heirID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrFamilyAccessNotFound
		}
		return nil, fmt.Errorf("failed to get family access: %w", err)
	}
	return grant, nil
}

// ListFamilyAccess returns all grants of vault
func (q *queries) ListFamilyAccess(ctx context.Context, vaultID string) ([]*models.VaultFamilyAccess, error) {
	query := `SELECT ` + familyColumns + ` FROM vault_family_access WHERE vault_id = ? ORDER BY granted_at ASC`

	rows, err := q.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family access: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var grants []*models.VaultFamilyAccess
	for rows.Next() {
		grant, err := scanFamilyAccess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family access: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return grants, nil
}

func scanFamilyAccess(row rowScanner) (*models.VaultFamilyAccess, error) {
	grant := &models.VaultFamilyAccess{}
	var role, capabilities string

	if err := row.Scan(
		&grant.ID,
		&grant.VaultID,
		&grant.HeirID,
		&role,
		&capabilities,
		&grant.GrantedBy,
		&grant.GrantedAt,
	); err != nil {
		return nil, err
	}

	grant.Role = models.HeirRole(role)
	if err := decodeJSON(capabilities, &grant.Capabilities); err != nil {
		return nil, err
	}
	return grant, nil
}
