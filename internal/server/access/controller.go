// Package access реализует контроллер доступа к хранилищам по токену.
// Контроллер - единственный путь разблокировки по токену: он проверяет токен,
// применяет политику ограничений, пишет ровно одну запись audit log на попытку
// и переводит хранилище locked -> unlocked.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/inheritance"
	"github.com/iudanet/legacyvault/internal/server/storage"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// Scheduler - часть планировщика наследования, нужная контроллеру
type Scheduler interface {
	Trigger(ctx context.Context, tx storage.VaultStore, vault *models.Vault, req inheritance.TriggerRequest) (*models.VaultInheritance, error)
	Notify(ctx context.Context, event inheritance.Event, vault *models.Vault, at time.Time)
	Kick()
}

// RequestContext - метаданные запроса разблокировки
type RequestContext struct {
	IP        string
	UserAgent string
	Location  string
	CallerID  string // пусто для анонимного держателя токена
}

// UnlockResult - результат успешной разблокировки
type UnlockResult struct {
	Vault         *models.Vault
	Inheritance   *models.VaultInheritance // nil, если наследование не запланировано
	Message       string
	AccessGranted bool
}

// Controller - контроллер доступа
type Controller struct {
	store     storage.TxVaultStore
	scheduler Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

// Option настраивает Controller
type Option func(*Controller)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a new access controller
func NewController(store storage.TxVaultStore, scheduler Scheduler, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unlock проверяет токен и разблокирует хранилище.
// Проверка, инкремент использования и смена статуса выполняются в одной транзакции.
// Неуспешная попытка логируется отдельно после отката, так что на каждую
// попытку приходится ровно одна запись.
func (c *Controller) Unlock(ctx context.Context, candidate string, req RequestContext) (*UnlockResult, error) {
	now := c.now()
	entry := &models.VaultAccessLog{
		ID:               uuid.New().String(),
		AccessorID:       req.CallerID,
		TokenFingerprint: crypto.TokenFingerprint(candidate),
		AccessType:       models.AccessTokenUnlock,
		IP:               req.IP,
		UserAgent:        req.UserAgent,
		Location:         req.Location,
		Timestamp:        now,
	}

	var (
		vault       *models.Vault
		record      *models.VaultInheritance
		unlockedNow bool
	)

	err := c.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		token, err := matchToken(ctx, tx, candidate, now)
		if err != nil {
			return err
		}
		entry.VaultID = token.VaultID
		entry.TokenID = token.ID

		vault, err = tx.GetVault(ctx, token.VaultID)
		if err != nil {
			return err
		}
		if vault.Status == models.VaultArchived {
			return vaulterr.NewRestriction(vaulterr.ReasonVaultArchived)
		}

		if err := checkRestrictions(token, req.IP, now); err != nil {
			return err
		}
		if !vault.UnlockConditions.UnlockerAllowed(req.CallerID) {
			return vaulterr.NewRestriction(vaulterr.ReasonUnlockerNotAllowed)
		}

		if err := tx.IncrementTokenUsage(ctx, token.ID, req.CallerID, now); err != nil {
			if errors.Is(err, storage.ErrStaleState) {
				// лимит исчерпан конкурентной разблокировкой
				return vaulterr.NewRestriction(vaulterr.ReasonUsageLimitExceeded)
			}
			return err
		}

		if vault.Status == models.VaultLocked {
			if err := tx.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultUnlocked, now); err != nil {
				return err
			}
			vault.Status = models.VaultUnlocked
			vault.UnlockedAt = &now
			unlockedNow = true

			// наследование оценивается только в момент первой разблокировки
			if vault.Inheritance.AutomaticInheritance {
				record, err = c.scheduler.Trigger(ctx, tx, vault, inheritance.TriggerRequest{
					At:          now,
					Event:       models.TriggerTokenUsed,
					Type:        models.InheritanceAutomatic,
					InitiatedBy: req.CallerID,
				})
				if errors.Is(err, storage.ErrInheritanceExists) {
					record, err = nil, nil
				}
				if err != nil {
					return err
				}
			}
		}

		entry.Success = true
		return tx.AppendAccessLog(ctx, entry)
	})
	if err != nil {
		c.recordFailure(ctx, entry, err)
		return nil, err
	}

	c.logger.InfoContext(ctx, "Vault unlocked by token",
		slog.String("vault_id", vault.ID),
		slog.String("token_id", entry.TokenID),
		slog.Bool("first_unlock", unlockedNow),
	)

	if unlockedNow {
		c.scheduler.Notify(ctx, inheritance.EventUnlocked, vault, now)
	}
	if record != nil && !record.DueAt.After(now) {
		c.scheduler.Kick()
	}

	return &UnlockResult{
		Vault:         vault,
		Inheritance:   record,
		AccessGranted: true,
		Message:       "Vault successfully unlocked",
	}, nil
}

// matchToken перебирает активные токены (в порядке выпуска) до первого совпадения
func matchToken(ctx context.Context, tx storage.VaultStore, candidate string, now time.Time) (*models.VaultToken, error) {
	tokens, err := tx.ListActiveTokens(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}
	for _, token := range tokens {
		if crypto.VerifyToken(candidate, token.TokenHash) {
			return token, nil
		}
	}
	return nil, vaulterr.ErrInvalidToken
}

// recordFailure пишет запись о неуспешной попытке вне откатанной транзакции
func (c *Controller) recordFailure(ctx context.Context, entry *models.VaultAccessLog, cause error) {
	entry.Success = false
	entry.FailureReason = string(vaulterr.ReasonOf(cause))

	if errors.Is(cause, storage.ErrVaultNotFound) {
		entry.VaultID = ""
	}

	if err := c.store.AppendAccessLog(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.ErrorContext(ctx, "Failed to write access log",
			slog.String("error", err.Error()),
		)
	}

	attrs := []any{
		slog.String("reason", entry.FailureReason),
		slog.String("ip", entry.IP),
	}
	if entry.VaultID != "" {
		attrs = append(attrs, slog.String("vault_id", entry.VaultID))
	}
	if entry.FailureReason == string(vaulterr.ReasonInternal) {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	c.logger.WarnContext(ctx, "Vault unlock denied", attrs...)
}
