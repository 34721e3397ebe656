package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// LinkFamily выдает или обновляет права наследников на унаследованное хранилище.
// Повторный вызов для того же наследника заменяет роль и флаги.
func (s *Service) LinkFamily(ctx context.Context, vaultID string, actor models.Actor, grants []HeirGrant) ([]*models.VaultFamilyAccess, error) {
	if len(grants) == 0 {
		return nil, vaulterr.Invalid("grants", "at least one grant is required")
	}
	for _, g := range grants {
		if err := g.validate(); err != nil {
			return nil, err
		}
	}

	var result []*models.VaultFamilyAccess
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		vault, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if vault.Status != models.VaultInherited {
			return fmt.Errorf("vault is %s, heirs can be linked only to inherited vault: %w", vault.Status, vaulterr.ErrStateConflict)
		}

		perm, err := resolvePermissions(ctx, tx, vault, actor)
		if err != nil {
			return err
		}
		if !perm.manager && !perm.caps.CanInviteOthers {
			return vaulterr.ErrForbidden
		}

		now := s.now()
		for _, g := range grants {
			grant := &models.VaultFamilyAccess{
				ID:           uuid.New().String(),
				VaultID:      vault.ID,
				HeirID:       g.HeirID,
				GrantedBy:    actor.UserID,
				GrantedAt:    now,
				Role:         g.Role,
				Capabilities: effectiveCapabilities(g.Role, g.Capabilities),
			}
			if err := tx.UpsertFamilyAccess(ctx, grant); err != nil {
				return err
			}
		}

		result, err = tx.ListFamilyAccess(ctx, vault.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Family access linked",
		slog.String("vault_id", vaultID),
		slog.Int("grants", len(grants)),
	)
	return result, nil
}
