package storage

import (
	"context"

	"github.com/iudanet/legacyvault/internal/models"
)

// LetterStorage хранит письма наследникам локально.
// Письма сохраняются только в зашифрованном виде (Encrypted=true).
type LetterStorage interface {
	// SaveLetter stores or replaces a letter
	// Returns ErrLetterNotEncrypted for plaintext letters
	SaveLetter(ctx context.Context, letter *models.Letter) error

	// GetLetter retrieves letter by ID
	// Returns ErrLetterNotFound if letter doesn't exist
	GetLetter(ctx context.Context, id string) (*models.Letter, error)

	// ListLetters returns letters of vault; empty vaultID returns all letters
	ListLetters(ctx context.Context, vaultID string) ([]*models.Letter, error)

	// DeleteLetter removes letter
	// Returns ErrLetterNotFound if letter doesn't exist
	DeleteLetter(ctx context.Context, id string) error
}
