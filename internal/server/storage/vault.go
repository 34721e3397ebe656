package storage

import (
	"context"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
)

// VaultRepository defines vault and unlock token persistence
type VaultRepository interface {
	// CreateVault inserts a new vault
	CreateVault(ctx context.Context, vault *models.Vault) error

	// GetVault retrieves vault by ID
	// Returns ErrVaultNotFound if vault doesn't exist
	GetVault(ctx context.Context, vaultID string) (*models.Vault, error)

	// ListVaultsByOwner returns vaults owned by user, newest first
	ListVaultsByOwner(ctx context.Context, ownerID string) ([]*models.Vault, error)

	// ListInheritedVaults returns inherited vaults where user has a family grant
	ListInheritedVaults(ctx context.Context, heirID string) ([]*models.Vault, error)

	// TransitionVault atomically moves vault from status `from` to `to` and stamps
	// the matching timestamp column (unlocked_at, inherited_at, archived_at).
	// Returns ErrStaleState if vault is not in `from` status.
	TransitionVault(ctx context.Context, vaultID string, from, to models.VaultStatus, at time.Time) error

	// UpdateVaultMetadata replaces metadata blob
	UpdateVaultMetadata(ctx context.Context, vaultID string, metadata models.VaultMetadata) error

	// ListScheduledUnlocks returns locked vaults whose unlock_date <= now
	ListScheduledUnlocks(ctx context.Context, now time.Time) ([]*models.Vault, error)
}

// VaultTokenRepository defines unlock token persistence
type VaultTokenRepository interface {
	// CreateVaultToken inserts token metadata with hash
	CreateVaultToken(ctx context.Context, token *models.VaultToken) error

	// ListVaultTokens returns all tokens of a vault ordered by creation
	ListVaultTokens(ctx context.Context, vaultID string) ([]*models.VaultToken, error)

	// ListActiveTokens returns active, non-expired tokens across all vaults
	// ordered by created_at ascending
	ListActiveTokens(ctx context.Context, now time.Time) ([]*models.VaultToken, error)

	// IncrementTokenUsage atomically increments usage_count if ceiling allows
	// and stamps last_used fields. Returns ErrStaleState if ceiling reached or token inactive.
	IncrementTokenUsage(ctx context.Context, tokenID, usedBy string, at time.Time) error

	// RevokeVaultToken deactivates token
	// Returns ErrVaultTokenNotFound if token doesn't belong to vault
	RevokeVaultToken(ctx context.Context, vaultID, tokenID string) error
}

// AccessLogRepository defines append-only audit log
type AccessLogRepository interface {
	// AppendAccessLog inserts immutable entry
	AppendAccessLog(ctx context.Context, entry *models.VaultAccessLog) error

	// ListAccessLogs returns most recent entries of vault, newest first
	ListAccessLogs(ctx context.Context, vaultID string, limit int) ([]*models.VaultAccessLog, error)
}

// InheritanceRepository defines inheritance records and heir grants
type InheritanceRepository interface {
	// CreateInheritance inserts a pending record
	// Returns ErrInheritanceExists if vault already has pending or active record
	CreateInheritance(ctx context.Context, record *models.VaultInheritance) error

	// GetInheritance retrieves record by ID
	// Returns ErrInheritanceNotFound if record doesn't exist
	GetInheritance(ctx context.Context, id string) (*models.VaultInheritance, error)

	// GetOpenInheritance returns pending or active record for vault
	// Returns ErrInheritanceNotFound if none
	GetOpenInheritance(ctx context.Context, vaultID string) (*models.VaultInheritance, error)

	// ListDueInheritances returns pending records with due_at <= now
	ListDueInheritances(ctx context.Context, now time.Time) ([]*models.VaultInheritance, error)

	// TransitionInheritance atomically moves record from `from` to `to`.
	// completedAt is written only if column is still NULL.
	// Returns ErrStaleState if record is not in `from` status.
	TransitionInheritance(ctx context.Context, id string, from, to models.InheritanceStatus, completedAt *time.Time) error

	// MarkNotificationsSent sets notifications_sent flag
	MarkNotificationsSent(ctx context.Context, id string) error

	// UpsertFamilyAccess creates or replaces grant for (vault, heir)
	UpsertFamilyAccess(ctx context.Context, grant *models.VaultFamilyAccess) error

	// GetFamilyAccess returns grant for (vault, heir)
	// Returns ErrFamilyAccessNotFound if none
	GetFamilyAccess(ctx context.Context, vaultID, heirID string) (*models.VaultFamilyAccess, error)

	// ListFamilyAccess returns all grants of vault
	ListFamilyAccess(ctx context.Context, vaultID string) ([]*models.VaultFamilyAccess, error)
}

// MemoryRepository defines vault-memory associations
type MemoryRepository interface {
	// CreateMemoryAssociation inserts association
	CreateMemoryAssociation(ctx context.Context, assoc *models.VaultMemoryAssociation) error

	// ListMemoryAssociations returns visible associations of vault
	ListMemoryAssociations(ctx context.Context, vaultID string) ([]*models.VaultMemoryAssociation, error)
}

// VaultStore объединяет все репозитории хранилищ
type VaultStore interface {
	VaultRepository
	VaultTokenRepository
	AccessLogRepository
	InheritanceRepository
	MemoryRepository
}

// TxVaultStore - VaultStore с поддержкой транзакций.
// fn получает VaultStore, привязанный к транзакции; ошибка из fn откатывает все изменения.
type TxVaultStore interface {
	VaultStore
	WithTx(ctx context.Context, fn func(ctx context.Context, tx VaultStore) error) error
}
