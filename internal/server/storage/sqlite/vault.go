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

const vaultColumns = `v.id, v.owner_id, v.name, v.description, v.status, v.unlock_date,
	v.unlock_conditions, v.inheritance_settings, v.privacy_settings, v.metadata,
	v.created_at, v.updated_at, v.unlocked_at, v.inherited_at, v.archived_at`

// rowScanner - общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateVault inserts a new vault
func (q *queries) CreateVault(ctx context.Context, vault *models.Vault) error {
	conditions, err := encodeJSON(vault.UnlockConditions)
	if err != nil {
		return err
	}
	inheritance, err := encodeJSON(vault.Inheritance)
	if err != nil {
		return err
	}
	privacy, err := encodeJSON(vault.Privacy)
	if err != nil {
		return err
	}
	metadata, err := encodeJSON(vault.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vaults (id, owner_id, name, description, status, unlock_date,
			unlock_conditions, inheritance_settings, privacy_settings, metadata,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.db.ExecContext(ctx, query,
		vault.ID,
		vault.OwnerID,
		vault.Name,
		vault.Description,
		string(vault.Status),
		utcPtr(vault.UnlockDate),
		conditions,
		inheritance,
		privacy,
		metadata,
		utc(vault.CreatedAt),
		utc(vault.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vault: %w", err)
	}

	return nil
}

// GetVault retrieves vault by ID
func (q *queries) GetVault(ctx context.Context, vaultID string) (*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults v WHERE v.id = ?`

	vault, err := scanVault(q.db.QueryRowContext(ctx, query, vaultID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return vault, nil
}

// ListVaultsByOwner returns vaults owned by user, newest first
func (q *queries) ListVaultsByOwner(ctx context.Context, ownerID string) ([]*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults v WHERE v.owner_id = ? ORDER BY v.created_at DESC`
	return q.listVaults(ctx, query, ownerID)
}

// ListInheritedVaults returns inherited vaults where user has a family grant
func (q *queries) ListInheritedVaults(ctx context.Context, heirID string) ([]*models.Vault, error) {
	query := `
		SELECT ` + vaultColumns + `
		FROM vaults v
		JOIN vault_family_access f ON f.vault_id = v.id
		WHERE f.heir_id = ? AND v.status = 'inherited'
		ORDER BY v.inherited_at DESC
	`
	return q.listVaults(ctx, query, heirID)
}

// ListScheduledUnlocks returns locked vaults whose unlock_date <= now
func (q *queries) ListScheduledUnlocks(ctx context.Context, now time.Time) ([]*models.Vault, error) {
	query := `
		SELECT ` + vaultColumns + `
		FROM vaults v
		WHERE v.status = 'locked' AND v.unlock_date IS NOT NULL AND v.unlock_date <= ?
		ORDER BY v.unlock_date ASC
	`
	return q.listVaults(ctx, query, utc(now))
}

func (q *queries) listVaults(ctx context.Context, query string, args ...any) ([]*models.Vault, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vaults: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var vaults []*models.Vault
	for rows.Next() {
		vault, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		vaults = append(vaults, vault)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return vaults, nil
}

func scanVault(row rowScanner) (*models.Vault, error) {
	vault := &models.Vault{}
	var (
		status                                     string
		unlockDate, unlockedAt, inheritedAt        sql.NullTime
		archivedAt                                 sql.NullTime
		conditions, inheritance, privacy, metadata string
	)

	if err := row.Scan(
		&vault.ID,
		&vault.OwnerID,
		&vault.Name,
		&vault.Description,
		&status,
		&unlockDate,
		&conditions,
		&inheritance,
		&privacy,
		&metadata,
		&vault.CreatedAt,
		&vault.UpdatedAt,
		&unlockedAt,
		&inheritedAt,
		&archivedAt,
	); err != nil {
		return nil, err
	}

	vault.Status = models.VaultStatus(status)
	vault.UnlockDate = timePtr(unlockDate)
	vault.UnlockedAt = timePtr(unlockedAt)
	vault.InheritedAt = timePtr(inheritedAt)
	vault.ArchivedAt = timePtr(archivedAt)

	for _, col := range []struct {
		dst  any
		data string
	}{
		{&vault.UnlockConditions, conditions},
		{&vault.Inheritance, inheritance},
		{&vault.Privacy, privacy},
		{&vault.Metadata, metadata},
	} {
		if err := decodeJSON(col.data, col.dst); err != nil {
			return nil, err
		}
	}

	return vault, nil
}

// TransitionVault atomically moves vault between statuses (compare-and-swap)
func (q *queries) TransitionVault(ctx context.Context, vaultID string, from, to models.VaultStatus, at time.Time) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("transition %s -> %s: %w", from, to, storage.ErrStaleState)
	}

	var stampColumn string
	switch to {
	case models.VaultUnlocked:
		stampColumn = "unlocked_at"
	case models.VaultInherited:
		stampColumn = "inherited_at"
	case models.VaultArchived:
		stampColumn = "archived_at"
	}

	// COALESCE сохраняет первую отметку времени
	query := fmt.Sprintf(`
		UPDATE vaults
		SET status = ?, updated_at = ?, %[1]s = COALESCE(%[1]s, ?)
		WHERE id = ? AND status = ?
	`, stampColumn)

	result, err := q.db.ExecContext(ctx, query, string(to), utc(at), utc(at), vaultID, string(from))
	if err != nil {
		return fmt.Errorf("failed to transition vault: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := q.GetVault(ctx, vaultID); err != nil {
			return err
		}
		return storage.ErrStaleState
	}

	return nil
}

// UpdateVaultMetadata replaces metadata blob
func (q *queries) UpdateVaultMetadata(ctx context.Context, vaultID string, metadata models.VaultMetadata) error {
	encoded, err := encodeJSON(metadata)
	if err != nil {
		return err
	}

	result, err := q.db.ExecContext(ctx,
		`UPDATE vaults SET metadata = ?, updated_at = ? WHERE id = ?`,
		encoded, utc(time.Now()), vaultID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vault metadata: %w", err)
	}

	return expectAffected(result, storage.ErrVaultNotFound)
}
