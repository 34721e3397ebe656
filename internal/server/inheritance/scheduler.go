// Package inheritance реализует отложенную активацию наследования хранилищ.
// Срок активации хранится в БД (due_at), поэтому перезапуск процесса не теряет
// запланированные активации: Worker периодически опрашивает просроченные записи.
package inheritance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// ErrNotDue возвращается Activate, если срок активации еще не наступил
var ErrNotDue = fmt.Errorf("inheritance not due yet: %w", vaulterr.ErrStateConflict)

// errAlreadyActivated откатывает транзакцию, если запись активировали конкурентно
var errAlreadyActivated = errors.New("inheritance already activated")

// TriggerRequest описывает событие, запускающее наследование
type TriggerRequest struct {
	At          time.Time
	Event       models.TriggerEvent
	Type        models.InheritanceType
	InitiatedBy string
}

// Scheduler - конечный автомат наследования
type Scheduler struct {
	store    storage.TxVaultStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	kick     chan struct{}
}

// Option настраивает Scheduler
type Option func(*Scheduler)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a new inheritance scheduler
func NewScheduler(store storage.TxVaultStore, notifier Notifier, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kick будит Worker без ожидания очередного тика (не блокирует)
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Trigger создает pending запись в транзакции вызывающего.
// Возвращает storage.ErrInheritanceExists, если открытая запись уже есть,
// и vaulterr.ErrStateConflict для унаследованного или архивного хранилища.
func (s *Scheduler) Trigger(ctx context.Context, tx storage.VaultStore, vault *models.Vault, req TriggerRequest) (*models.VaultInheritance, error) {
	if vault.Status == models.VaultInherited || vault.Status == models.VaultArchived {
		return nil, fmt.Errorf("vault is %s: %w", vault.Status, vaulterr.ErrStateConflict)
	}
	if !req.Event.Valid() {
		return nil, vaulterr.Invalid("trigger_event", "unknown event %q", req.Event)
	}

	if _, err := tx.GetOpenInheritance(ctx, vault.ID); err == nil {
		return nil, storage.ErrInheritanceExists
	} else if !errors.Is(err, storage.ErrInheritanceNotFound) {
		return nil, err
	}

	at := req.At
	if at.IsZero() {
		at = s.now()
	}
	delay := vault.Inheritance.DelayHours
	if delay < 0 {
		delay = 0
	}

	record := &models.VaultInheritance{
		ID:              uuid.New().String(),
		VaultID:         vault.ID,
		OriginalOwnerID: vault.OwnerID,
		InitiatedBy:     req.InitiatedBy,
		Type:            req.Type,
		TriggerEvent:    req.Event,
		TriggerDate:     at,
		DelayHours:      delay,
		DueAt:           at.Add(time.Duration(delay) * time.Hour),
		Status:          models.InheritancePending,
		CreatedAt:       at,
	}
	if err := tx.CreateInheritance(ctx, record); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Inheritance triggered",
		slog.String("vault_id", vault.ID),
		slog.String("inheritance_id", record.ID),
		slog.String("event", string(req.Event)),
		slog.Time("due_at", record.DueAt),
	)

	return record, nil
}

// ForceTrigger - ручной запуск наследования владельцем или администратором
// в обход разблокировки токеном. Задержка и активация те же.
func (s *Scheduler) ForceTrigger(ctx context.Context, vaultID string, actor models.Actor, event models.TriggerEvent) (*models.VaultInheritance, error) {
	if event == "" {
		event = models.TriggerManual
	}
	kind := models.InheritanceManual
	if event == models.TriggerDeathCertificate {
		kind = models.InheritanceEmergency
	}

	var record *models.VaultInheritance
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		vault, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if !actor.CanManage(vault) {
			return vaulterr.ErrForbidden
		}

		now := s.now()
		record, err = s.Trigger(ctx, tx, vault, TriggerRequest{
			At:          now,
			Event:       event,
			Type:        kind,
			InitiatedBy: actor.UserID,
		})
		if err != nil {
			return err
		}

		accessType := models.AccessInheritance
		if actor.Admin && actor.UserID != vault.OwnerID {
			accessType = models.AccessAdminOverride
		}
		return tx.AppendAccessLog(ctx, &models.VaultAccessLog{
			ID:         uuid.New().String(),
			VaultID:    vault.ID,
			AccessorID: actor.UserID,
			AccessType: accessType,
			Success:    true,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	if !record.DueAt.After(s.now()) {
		s.Kick()
	}
	return record, nil
}

// Activate переводит pending запись в active, а хранилище в inherited.
// Идемпотентна: повторный вызов для уже активированной записи ничего не меняет
// и возвращает false. Уведомления отправляются после commit.
func (s *Scheduler) Activate(ctx context.Context, inheritanceID string) (bool, error) {
	var (
		vault     *models.Vault
		record    *models.VaultInheritance
		activated bool
	)
	now := s.now()

	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		var err error
		record, err = tx.GetInheritance(ctx, inheritanceID)
		if err != nil {
			return err
		}
		if record.Status != models.InheritancePending {
			return nil
		}
		if now.Before(record.DueAt) {
			return ErrNotDue
		}

		vault, err = tx.GetVault(ctx, record.VaultID)
		if err != nil {
			return err
		}

		switch vault.Status {
		case models.VaultArchived:
			// архивное хранилище не наследуется
			return tx.TransitionInheritance(ctx, record.ID, models.InheritancePending, models.InheritanceCancelled, nil)
		case models.VaultLocked, models.VaultUnlocked:
			if err := tx.TransitionVault(ctx, vault.ID, vault.Status, models.VaultInherited, now); err != nil {
				return err
			}
		}

		if err := tx.TransitionInheritance(ctx, record.ID, models.InheritancePending, models.InheritanceActive, &now); err != nil {
			if errors.Is(err, storage.ErrStaleState) {
				return errAlreadyActivated
			}
			return err
		}

		activated = true
		return tx.AppendAccessLog(ctx, &models.VaultAccessLog{
			ID:         uuid.New().String(),
			VaultID:    vault.ID,
			AccessorID: record.InitiatedBy,
			AccessType: models.AccessInheritance,
			Success:    true,
			Timestamp:  now,
		})
	})
	if errors.Is(err, errAlreadyActivated) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !activated {
		return false, nil
	}

	s.logger.InfoContext(ctx, "Inheritance activated",
		slog.String("vault_id", vault.ID),
		slog.String("inheritance_id", record.ID),
	)

	if len(vault.Inheritance.NotificationEmails) > 0 {
		if err := s.notify(ctx, EventInherited, vault, now); err == nil {
			if err := s.store.MarkNotificationsSent(ctx, record.ID); err != nil {
				s.logger.WarnContext(ctx, "Failed to mark notifications sent",
					slog.String("inheritance_id", record.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return true, nil
}

// ActivateDue активирует все pending записи с наступившим сроком.
// Возвращает число активированных записей.
func (s *Scheduler) ActivateDue(ctx context.Context) (int, error) {
	records, err := s.store.ListDueInheritances(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due inheritances: %w", err)
	}

	var (
		activated int
		errs      []error
	)
	for _, record := range records {
		ok, err := s.Activate(ctx, record.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to activate inheritance",
				slog.String("inheritance_id", record.ID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		if ok {
			activated++
		}
	}

	return activated, errors.Join(errs...)
}

// UnlockScheduled разблокирует хранилища с наступившей датой unlock_date
// и запускает автоматическое наследование с событием scheduled_date.
func (s *Scheduler) UnlockScheduled(ctx context.Context) (int, error) {
	now := s.now()
	vaults, err := s.store.ListScheduledUnlocks(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled unlocks: %w", err)
	}

	var (
		unlocked int
		errs     []error
	)
	for _, vault := range vaults {
		var record *models.VaultInheritance
		err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
			if err := tx.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultUnlocked, now); err != nil {
				return err
			}
			if err := tx.AppendAccessLog(ctx, &models.VaultAccessLog{
				ID:         uuid.New().String(),
				VaultID:    vault.ID,
				AccessType: models.AccessScheduledUnlock,
				Success:    true,
				Timestamp:  now,
			}); err != nil {
				return err
			}
			if !vault.Inheritance.AutomaticInheritance {
				return nil
			}

			vault.Status = models.VaultUnlocked
			var err error
			record, err = s.Trigger(ctx, tx, vault, TriggerRequest{
				At:    now,
				Event: models.TriggerScheduledDate,
				Type:  models.InheritanceAutomatic,
			})
			if errors.Is(err, storage.ErrInheritanceExists) {
				return nil
			}
			return err
		})
		if errors.Is(err, storage.ErrStaleState) {
			// уже разблокировано другим путем
			continue
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to unlock scheduled vault",
				slog.String("vault_id", vault.ID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}

		unlocked++
		s.logger.InfoContext(ctx, "Vault unlocked by schedule", slog.String("vault_id", vault.ID))
		if len(vault.Inheritance.NotificationEmails) > 0 {
			_ = s.notify(ctx, EventUnlocked, vault, now)
		}
		if record != nil && !record.DueAt.After(now) {
			s.Kick()
		}
	}

	return unlocked, errors.Join(errs...)
}

// Cancel отменяет pending запись наследования. Активную запись отменить нельзя.
func (s *Scheduler) Cancel(ctx context.Context, vaultID string, actor models.Actor) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx storage.VaultStore) error {
		vault, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if !actor.CanManage(vault) {
			return vaulterr.ErrForbidden
		}

		record, err := tx.GetOpenInheritance(ctx, vaultID)
		if err != nil {
			return err
		}
		if record.Status != models.InheritancePending {
			return fmt.Errorf("inheritance is %s: %w", record.Status, vaulterr.ErrStateConflict)
		}

		now := s.now()
		if err := tx.TransitionInheritance(ctx, record.ID, models.InheritancePending, models.InheritanceCancelled, &now); err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "Inheritance cancelled",
			slog.String("vault_id", vaultID),
			slog.String("inheritance_id", record.ID),
		)
		return nil
	})
}

// Notify отправляет уведомление о смене статуса; ошибка только логируется
func (s *Scheduler) Notify(ctx context.Context, event Event, vault *models.Vault, at time.Time) {
	if len(vault.Inheritance.NotificationEmails) == 0 {
		return
	}
	_ = s.notify(ctx, event, vault, at)
}

func (s *Scheduler) notify(ctx context.Context, event Event, vault *models.Vault, at time.Time) error {
	if s.notifier == nil {
		return nil
	}
	err := s.notifier.Notify(ctx, NewNotification(event, vault, at))
	if err != nil {
		s.logger.WarnContext(ctx, "Notification delivery failed",
			slog.String("vault_id", vault.ID),
			slog.String("event", string(event)),
			slog.String("error", err.Error()),
		)
	}
	return err
}
