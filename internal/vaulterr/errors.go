// Package vaulterr определяет таксономию ошибок ядра хранилища.
// Все слои (crypto, client encryption, access controller, scheduler)
// возвращают эти ошибки, чтобы вызывающий код мог проверять их через errors.Is/As.
package vaulterr

import (
	"errors"
	"fmt"
)

// Sentinel errors для проверки через errors.Is()
var (
	// ErrAuthentication - неверный пароль или ошибка распаковки ключа.
	// Намеренно не различает "неверный пароль" и "поврежденный конверт".
	ErrAuthentication = errors.New("authentication failed")

	// ErrIntegrity - несовпадение authentication tag при расшифровке
	ErrIntegrity = errors.New("integrity check failed")

	// ErrVaultLocked - операция до инициализации encryption context
	ErrVaultLocked = errors.New("vault is locked")

	// ErrInvalidToken - ни один активный токен не совпал с кандидатом
	ErrInvalidToken = errors.New("invalid token")

	// ErrRestrictionViolation - токен найден, но политика ограничений не пройдена
	ErrRestrictionViolation = errors.New("restriction violation")

	// ErrNotFound - запрошенный объект не существует
	ErrNotFound = errors.New("not found")

	// ErrStateConflict - операция недопустима для текущего статуса
	ErrStateConflict = errors.New("state conflict")

	// ErrForbidden - у вызывающего нет прав на операцию
	ErrForbidden = errors.New("forbidden")

	// ErrSearchDisabled - поиск запрещен настройками приватности
	ErrSearchDisabled = errors.New("search disabled by privacy settings")

	// ErrValidation - некорректные входные данные
	ErrValidation = errors.New("validation failed")
)

// FailureReason - типизированная причина отказа в доступе.
// Записывается в audit log, наружу не раскрывается.
type FailureReason string

const (
	ReasonInvalidToken       FailureReason = "invalid_token"
	ReasonIPNotWhitelisted   FailureReason = "ip_not_whitelisted"
	ReasonOutsideHours       FailureReason = "outside_allowed_hours"
	ReasonOutsideDays        FailureReason = "outside_allowed_days"
	ReasonUsageLimitExceeded FailureReason = "usage_limit_exceeded"
	ReasonUnlockerNotAllowed FailureReason = "unlocker_not_allowed"
	ReasonVaultArchived      FailureReason = "vault_archived"
	ReasonInternal           FailureReason = "internal_error"
)

// RestrictionViolationError описывает конкретное нарушение политики токена
type RestrictionViolationError struct {
	Reason FailureReason
}

func (e *RestrictionViolationError) Error() string {
	return fmt.Sprintf("restriction violation: %s", e.Reason)
}

// Is implements errors.Is for sentinel error matching.
func (e *RestrictionViolationError) Is(target error) bool {
	return target == ErrRestrictionViolation
}

// NewRestriction создает ошибку нарушения ограничения с указанной причиной
func NewRestriction(reason FailureReason) error {
	return &RestrictionViolationError{Reason: reason}
}

// ValidationError описывает некорректное поле запроса
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid создает ValidationError для поля
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf извлекает причину отказа из ошибки контроллера доступа.
// Для ErrInvalidToken возвращает ReasonInvalidToken, для неизвестных - ReasonInternal.
func ReasonOf(err error) FailureReason {
	var rv *RestrictionViolationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rv):
		return rv.Reason
	case errors.Is(err, ErrInvalidToken):
		return ReasonInvalidToken
	case errors.Is(err, ErrStateConflict):
		return ReasonVaultArchived
	default:
		return ReasonInternal
	}
}
