package inheritance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
)

// Event - тип уведомления о смене статуса хранилища
type Event string

const (
	EventUnlocked  Event = "vault_unlocked"
	EventInherited Event = "vault_inherited"
)

const (
	defaultUnlockedMessage  = "A private vault has been unlocked and is now accessible."
	defaultInheritedMessage = "A private vault has been inherited and is now available to family members."
)

// Notification - уведомление для адресов из настроек наследования
type Notification struct {
	At         time.Time
	Event      Event
	VaultID    string
	VaultName  string
	Message    string
	Recipients []string
}

// Subject возвращает тему письма
func (n Notification) Subject() string {
	switch n.Event {
	case EventInherited:
		return n.VaultName + " - Inheritance Activated"
	default:
		return n.VaultName + " - Vault Unlocked"
	}
}

// NewNotification собирает уведомление из настроек хранилища.
// Пустое сообщение владельца заменяется стандартным текстом.
func NewNotification(event Event, vault *models.Vault, at time.Time) Notification {
	msg := vault.Inheritance.InheritanceMessage
	if msg == "" {
		if event == EventInherited {
			msg = defaultInheritedMessage
		} else {
			msg = defaultUnlockedMessage
		}
	}

	recipients := make([]string, len(vault.Inheritance.NotificationEmails))
	copy(recipients, vault.Inheritance.NotificationEmails)

	return Notification{
		At:         at,
		Event:      event,
		VaultID:    vault.ID,
		VaultName:  vault.Name,
		Message:    msg,
		Recipients: recipients,
	}
}

// Notifier доставляет уведомления.
// Ошибка доставки логируется вызывающим и никогда не откатывает смену статуса.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier пишет уведомления в лог (используется, когда SMTP не настроен)
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates notifier that only logs
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs notification without recipients' addresses
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "Vault notification",
		slog.String("event", string(n.Event)),
		slog.String("vault_id", n.VaultID),
		slog.Int("recipients", len(n.Recipients)),
		slog.Time("at", n.At),
	)
	return nil
}

// MultiNotifier рассылает уведомление всем вложенным Notifier
type MultiNotifier []Notifier

// Notify calls every notifier and joins errors
func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
