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

// AddMemory привязывает воспоминание к хранилищу и обновляет счетчики.
// Без эмоциональной аннотации воспоминание аннотирует Analyzer, если это
// разрешено настройками приватности; иначе аннотация нейтральная.
func (s *Service) AddMemory(ctx context.Context, vaultID string, actor models.Actor, params AddMemoryParams) (*models.VaultMemoryAssociation, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	vault, err := s.store.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAdd(ctx, vault, actor); err != nil {
		return nil, err
	}

	emotional, search := s.annotate(ctx, vault, params)
	level := params.AccessLevel
	if level == "" {
		level = models.MemoryFamily
	}

	now := s.now()
	assoc := &models.VaultMemoryAssociation{
		ID:          uuid.New().String(),
		VaultID:     vault.ID,
		MemoryID:    params.MemoryID,
		AddedBy:     actor.UserID,
		AddedAt:     now,
		AccessLevel: level,
		Emotional:   emotional,
		Search:      search,
		Size:        params.Size,
		Visible:     true,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		current, err := tx.GetVault(ctx, vault.ID)
		if err != nil {
			return err
		}
		if current.Status == models.VaultArchived {
			return fmt.Errorf("vault is archived: %w", vaulterr.ErrStateConflict)
		}
		if err := tx.CreateMemoryAssociation(ctx, assoc); err != nil {
			return err
		}

		meta := current.Metadata
		meta.TotalMemories++
		meta.TotalSize += params.Size
		meta.LastActivity = now
		return tx.UpdateVaultMetadata(ctx, current.ID, meta)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Memory added to vault",
		slog.String("vault_id", vault.ID),
		slog.String("memory_id", params.MemoryID),
	)
	return assoc, nil
}

// authorizeAdd: владелец добавляет в любое неархивное хранилище,
// наследник - только в унаследованное и с правом добавления
func (s *Service) authorizeAdd(ctx context.Context, vault *models.Vault, actor models.Actor) error {
	if vault.Status == models.VaultArchived {
		return fmt.Errorf("vault is archived: %w", vaulterr.ErrStateConflict)
	}
	perm, err := resolvePermissions(ctx, s.store, vault, actor)
	if err != nil {
		return err
	}
	if !perm.caps.CanAdd {
		return vaulterr.ErrForbidden
	}
	return nil
}

func (s *Service) annotate(ctx context.Context, vault *models.Vault, params AddMemoryParams) (models.EmotionalContext, models.SearchMetadata) {
	emotional := models.EmotionalContext{Sentiment: models.SentimentNeutral, Intensity: 0.5}
	var search models.SearchMetadata
	if params.Emotional != nil {
		emotional = *params.Emotional
	}
	if params.Search != nil {
		search = *params.Search
	}
	if params.Emotional != nil && params.Search != nil {
		return emotional, search
	}
	if !vault.Privacy.AllowAIAnalysis {
		return emotional, search
	}

	analyzed, metadata, err := s.analyzer.Analyze(ctx, params.MemoryID)
	if err != nil {
		s.logger.WarnContext(ctx, "Memory analysis failed, using neutral annotation",
			slog.String("vault_id", vault.ID),
			slog.String("memory_id", params.MemoryID),
			slog.String("error", err.Error()),
		)
		return emotional, search
	}
	if params.Emotional == nil && analyzed != nil {
		emotional = *analyzed
	}
	if params.Search == nil && metadata != nil {
		search = *metadata
	}
	return emotional, search
}

// Search ищет воспоминания хранилища по структурным фильтрам и свободному тексту.
// Закрытое хранилище доступно для поиска только владельцу, приватные
// воспоминания не видны наследникам.
func (s *Service) Search(ctx context.Context, vaultID string, actor models.Actor, query SearchQuery) ([]*models.VaultMemoryAssociation, error) {
	vault, err := s.store.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	perm, err := resolvePermissions(ctx, s.store, vault, actor)
	if err != nil {
		return nil, err
	}
	if !perm.caps.CanView {
		return nil, vaulterr.ErrForbidden
	}
	if vault.Status == models.VaultLocked && actor.UserID != vault.OwnerID {
		return nil, vaulterr.ErrForbidden
	}
	if !vault.Privacy.AllowSearch {
		return nil, vaulterr.ErrSearchDisabled
	}

	if query.Text != "" {
		parsed, err := s.parser.Parse(ctx, query.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse search query: %w", err)
		}
		query = query.merge(parsed)
	}

	memories, err := s.store.ListMemoryAssociations(ctx, vault.ID)
	if err != nil {
		return nil, err
	}

	results := make([]*models.VaultMemoryAssociation, 0, len(memories))
	for _, m := range memories {
		if !perm.manager && m.AccessLevel == models.MemoryPrivate {
			continue
		}
		if query.matches(m) {
			results = append(results, m)
		}
	}
	rank(results)

	if n := query.limit(); len(results) > n {
		results = results[:n]
	}
	return results, nil
}
