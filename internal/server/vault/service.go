// Package vault реализует жизненный цикл хранилищ: создание с выпуском токенов,
// управление токенами, привязку воспоминаний, поиск, права наследников и архивирование.
// Разблокировка по токену выполняется пакетом access, активация наследования - пакетом inheritance.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

const (
	// DefaultLogLimit - размер выборки audit log по умолчанию
	DefaultLogLimit = 50
	// MaxLogLimit - максимальный размер выборки audit log
	MaxLogLimit = 500
)

// CreateResult - созданное хранилище и сырые токены, показываемые один раз
type CreateResult struct {
	Vault  *models.Vault         `json:"vault"`
	Tokens []*models.IssuedToken `json:"tokens"`
}

// Service - сервис управления хранилищами
type Service struct {
	store        storage.TxVaultStore
	analyzer     Analyzer
	parser       QueryParser
	logger       *slog.Logger
	now          func() time.Time
	backupTokens int
}

// Option настраивает Service
type Option func(*Service)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithAnalyzer задает внешний анализатор воспоминаний
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

// WithQueryParser задает разбор свободного текста запросов
func WithQueryParser(p QueryParser) Option {
	return func(s *Service) {
		s.parser = p
	}
}

// WithBackupTokens задает число резервных токенов по умолчанию
func WithBackupTokens(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= MaxBackupTokens {
			s.backupTokens = n
		}
	}
}

// NewService creates a new vault service
func NewService(store storage.TxVaultStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		analyzer:     NeutralAnalyzer{},
		parser:       KeywordParser{},
		logger:       logger,
		now:          time.Now,
		backupTokens: DefaultBackupTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create создает хранилище в статусе locked и выпускает primary и backup токены.
// Сырые секреты возвращаются только в результате этого вызова.
func (s *Service) Create(ctx context.Context, actor models.Actor, params CreateParams) (*CreateResult, error) {
	if actor.UserID == "" {
		return nil, vaulterr.ErrForbidden
	}
	now := s.now()
	if err := params.validate(now); err != nil {
		return nil, err
	}

	inheritance := models.DefaultInheritanceSettings()
	if params.Inheritance != nil {
		inheritance = *params.Inheritance
	}
	privacy := models.DefaultPrivacySettings()
	if params.Privacy != nil {
		privacy = *params.Privacy
	}
	backups := params.BackupCount
	if backups == 0 {
		backups = s.backupTokens
	}

	vault := &models.Vault{
		ID:               uuid.New().String(),
		OwnerID:          actor.UserID,
		Name:             params.Name,
		Description:      params.Description,
		Status:           models.VaultLocked,
		UnlockDate:       params.UnlockDate,
		UnlockConditions: params.UnlockConditions,
		Inheritance:      inheritance,
		Privacy:          privacy,
		Metadata: models.VaultMetadata{
			Tags:         params.Tags,
			LastActivity: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	result := &CreateResult{Vault: vault}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		if err := tx.CreateVault(ctx, vault); err != nil {
			return err
		}

		issued, err := s.issue(ctx, tx, vault.ID, actor.UserID, models.TokenPrimary, params.PrimaryToken, now)
		if err != nil {
			return err
		}
		result.Tokens = append(result.Tokens, issued)

		for range backups {
			issued, err := s.issue(ctx, tx, vault.ID, actor.UserID, models.TokenBackup, params.BackupToken, now)
			if err != nil {
				return err
			}
			result.Tokens = append(result.Tokens, issued)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Vault created",
		slog.String("vault_id", vault.ID),
		slog.String("owner_id", vault.OwnerID),
		slog.Int("tokens", len(result.Tokens)),
	)
	return result, nil
}

// issue выпускает токен и сохраняет только его хеш
func (s *Service) issue(ctx context.Context, tx storage.VaultStore, vaultID, createdBy string, typ models.TokenType, params TokenParams, now time.Time) (*models.IssuedToken, error) {
	secret, err := crypto.IssueToken(crypto.MinTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	token := &models.VaultToken{
		ID:           uuid.New().String(),
		VaultID:      vaultID,
		TokenHash:    crypto.HashToken(secret),
		Type:         typ,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		IsActive:     true,
		MaxUsages:    params.MaxUsages,
		ExpiresAt:    params.ExpiresAt,
		Restrictions: params.Restrictions,
	}
	if err := tx.CreateVaultToken(ctx, token); err != nil {
		return nil, err
	}
	return &models.IssuedToken{Token: token, Secret: secret}, nil
}

// Get возвращает хранилище владельцу, администратору или наследнику с правом просмотра
func (s *Service) Get(ctx context.Context, vaultID string, actor models.Actor) (*models.Vault, error) {
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
	return vault, nil
}

// ListOwned возвращает хранилища владельца
func (s *Service) ListOwned(ctx context.Context, ownerID string) ([]*models.Vault, error) {
	return s.store.ListVaultsByOwner(ctx, ownerID)
}

// ListInherited возвращает унаследованные хранилища, на которые у наследника есть права
func (s *Service) ListInherited(ctx context.Context, heirID string) ([]*models.Vault, error) {
	return s.store.ListInheritedVaults(ctx, heirID)
}

// Open разблокирует хранилище владельцем напрямую, без токена.
// Наследование при этом не запускается.
func (s *Service) Open(ctx context.Context, vaultID string, actor models.Actor) (*models.Vault, error) {
	var vault *models.Vault
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		var err error
		vault, err = s.managedVault(ctx, tx, vaultID, actor)
		if err != nil {
			return err
		}

		now := s.now()
		switch vault.Status {
		case models.VaultArchived:
			return fmt.Errorf("vault is archived: %w", vaulterr.ErrStateConflict)
		case models.VaultLocked:
			if err := tx.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultUnlocked, now); err != nil {
				return err
			}
			vault.Status = models.VaultUnlocked
			vault.UnlockedAt = &now
		}

		return tx.AppendAccessLog(ctx, &models.VaultAccessLog{
			ID:         uuid.New().String(),
			VaultID:    vault.ID,
			AccessorID: actor.UserID,
			AccessType: managerAccessType(vault, actor, models.AccessOwnerOpen),
			Success:    true,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Vault opened by owner",
		slog.String("vault_id", vault.ID),
		slog.String("actor_id", actor.UserID),
	)
	return vault, nil
}

// IssueToken выпускает дополнительный токен разблокировки
func (s *Service) IssueToken(ctx context.Context, vaultID string, actor models.Actor, params TokenParams) (*models.IssuedToken, error) {
	now := s.now()
	if err := params.validate(now); err != nil {
		return nil, err
	}
	typ := params.Type
	if typ == "" {
		typ = models.TokenBackup
	}

	var issued *models.IssuedToken
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		vault, err := s.managedVault(ctx, tx, vaultID, actor)
		if err != nil {
			return err
		}
		if vault.Status == models.VaultArchived {
			return fmt.Errorf("vault is archived: %w", vaulterr.ErrStateConflict)
		}
		issued, err = s.issue(ctx, tx, vault.ID, actor.UserID, typ, params, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Vault token issued",
		slog.String("vault_id", vaultID),
		slog.String("token_id", issued.Token.ID),
		slog.String("type", string(typ)),
	)
	return issued, nil
}

// RevokeToken деактивирует токен; отозванный токен больше не проходит проверку
func (s *Service) RevokeToken(ctx context.Context, vaultID, tokenID string, actor models.Actor) error {
	if _, err := s.managedVault(ctx, s.store, vaultID, actor); err != nil {
		return err
	}
	if err := s.store.RevokeVaultToken(ctx, vaultID, tokenID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Vault token revoked",
		slog.String("vault_id", vaultID),
		slog.String("token_id", tokenID),
	)
	return nil
}

// ListTokens возвращает метаданные токенов хранилища (без секретов)
func (s *Service) ListTokens(ctx context.Context, vaultID string, actor models.Actor) ([]*models.VaultToken, error) {
	if _, err := s.managedVault(ctx, s.store, vaultID, actor); err != nil {
		return nil, err
	}
	return s.store.ListVaultTokens(ctx, vaultID)
}

// AccessLogs возвращает последние записи audit log (новые первыми)
func (s *Service) AccessLogs(ctx context.Context, vaultID string, actor models.Actor, limit int) ([]*models.VaultAccessLog, error) {
	if _, err := s.managedVault(ctx, s.store, vaultID, actor); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}
	return s.store.ListAccessLogs(ctx, vaultID, limit)
}

// Archive переводит хранилище в archived. Ожидающее наследование отменяется,
// активное - завершается.
func (s *Service) Archive(ctx context.Context, vaultID string, actor models.Actor) (*models.Vault, error) {
	var vault *models.Vault
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		var err error
		vault, err = s.managedVault(ctx, tx, vaultID, actor)
		if err != nil {
			return err
		}
		if !vault.Status.CanTransitionTo(models.VaultArchived) {
			return fmt.Errorf("vault is already archived: %w", vaulterr.ErrStateConflict)
		}

		now := s.now()
		if err := tx.TransitionVault(ctx, vault.ID, vault.Status, models.VaultArchived, now); err != nil {
			return err
		}
		vault.Status = models.VaultArchived
		vault.ArchivedAt = &now

		record, err := tx.GetOpenInheritance(ctx, vault.ID)
		if errors.Is(err, storage.ErrInheritanceNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		next := models.InheritanceCancelled
		if record.Status == models.InheritanceActive {
			next = models.InheritanceCompleted
		}
		return tx.TransitionInheritance(ctx, record.ID, record.Status, next, &now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Vault archived",
		slog.String("vault_id", vault.ID),
		slog.String("actor_id", actor.UserID),
	)
	return vault, nil
}

// managedVault загружает хранилище и проверяет, что actor - владелец или администратор
func (s *Service) managedVault(ctx context.Context, st storage.VaultStore, vaultID string, actor models.Actor) (*models.Vault, error) {
	vault, err := st.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(vault) {
		return nil, vaulterr.ErrForbidden
	}
	return vault, nil
}

// managerAccessType помечает действия администратора над чужим хранилищем
func managerAccessType(vault *models.Vault, actor models.Actor, ownerType models.AccessType) models.AccessType {
	if actor.Admin && actor.UserID != vault.OwnerID {
		return models.AccessAdminOverride
	}
	return ownerType
}
