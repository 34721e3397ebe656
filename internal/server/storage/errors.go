package storage

import (
	"errors"
	"fmt"

	"github.com/iudanet/legacyvault/internal/vaulterr"
)

// Common storage errors. Все *NotFound оборачивают vaulterr.ErrNotFound.
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = fmt.Errorf("user %w", vaulterr.ErrNotFound)

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = fmt.Errorf("refresh token %w", vaulterr.ErrNotFound)

	// ErrEnvelopeAlreadySet indicates that encryption envelope is already persisted for user
	ErrEnvelopeAlreadySet = errors.New("encryption envelope already set")

	// ErrVaultNotFound indicates that vault was not found
	ErrVaultNotFound = fmt.Errorf("vault %w", vaulterr.ErrNotFound)

	// ErrVaultTokenNotFound indicates that unlock token was not found
	ErrVaultTokenNotFound = fmt.Errorf("vault token %w", vaulterr.ErrNotFound)

	// ErrInheritanceNotFound indicates that inheritance record was not found
	ErrInheritanceNotFound = fmt.Errorf("inheritance %w", vaulterr.ErrNotFound)

	// ErrInheritanceExists indicates that vault already has pending or active inheritance
	ErrInheritanceExists = fmt.Errorf("open inheritance already exists: %w", vaulterr.ErrStateConflict)

	// ErrFamilyAccessNotFound indicates that heir grant was not found
	ErrFamilyAccessNotFound = fmt.Errorf("family access %w", vaulterr.ErrNotFound)

	// ErrMemoryAlreadyLinked indicates that memory is already associated with vault
	ErrMemoryAlreadyLinked = fmt.Errorf("memory already linked: %w", vaulterr.ErrStateConflict)

	// ErrStaleState indicates that compare-and-swap update matched no row
	// (состояние изменилось конкурентно)
	ErrStaleState = fmt.Errorf("stale state: %w", vaulterr.ErrStateConflict)
)
