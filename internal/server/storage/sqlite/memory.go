package sqlite

import (
	"context"
	"fmt"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

// CreateMemoryAssociation inserts association
func (q *queries) CreateMemoryAssociation(ctx context.Context, assoc *models.VaultMemoryAssociation) error {
	emotional, err := encodeJSON(assoc.Emotional)
	if err != nil {
		return err
	}
	search, err := encodeJSON(assoc.Search)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vault_memory_associations (id, vault_id, memory_id, added_by, added_at,
			is_visible, access_level, size, emotional_context, search_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.db.ExecContext(ctx, query,
		assoc.ID,
		assoc.VaultID,
		assoc.MemoryID,
		assoc.AddedBy,
		utc(assoc.AddedAt),
		boolToInt(assoc.Visible),
		string(assoc.AccessLevel),
		assoc.Size,
		emotional,
		search,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrMemoryAlreadyLinked
		}
		return fmt.Errorf("failed to insert memory association: %w", err)
	}

	return nil
}

// ListMemoryAssociations returns visible associations of vault
func (q *queries) ListMemoryAssociations(ctx context.Context, vaultID string) ([]*models.VaultMemoryAssociation, error) {
	query := `
		SELECT id, vault_id, memory_id, added_by, added_at, is_visible, access_level, size,
			emotional_context, search_metadata
		FROM vault_memory_associations
		WHERE vault_id = ? AND is_visible = 1
		ORDER BY added_at DESC
	`

	rows, err := q.db.QueryContext(ctx, query, vaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory associations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var assocs []*models.VaultMemoryAssociation
	for rows.Next() {
		assoc := &models.VaultMemoryAssociation{}
		var accessLevel, emotional, search string
		if err := rows.Scan(
			&assoc.ID,
			&assoc.VaultID,
			&assoc.MemoryID,
			&assoc.AddedBy,
			&assoc.AddedAt,
			&assoc.Visible,
			&accessLevel,
			&assoc.Size,
			&emotional,
			&search,
		); err != nil {
			return nil, fmt.Errorf("failed to scan memory association: %w", err)
		}
		assoc.AccessLevel = models.MemoryAccessLevel(accessLevel)
		if err := decodeJSON(emotional, &assoc.Emotional); err != nil {
			return nil, err
		}
		if err := decodeJSON(search, &assoc.Search); err != nil {
			return nil, err
		}
		assocs = append(assocs, assoc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return assocs, nil
}
