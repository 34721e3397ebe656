package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrEnvelopeNotFound indicates that no master key envelope is cached
	ErrEnvelopeNotFound = errors.New("envelope not found")

	// ErrLetterNotFound indicates that letter was not found
	ErrLetterNotFound = errors.New("letter not found")

	// ErrLetterNotEncrypted indicates an attempt to persist plaintext letter
	ErrLetterNotEncrypted = errors.New("letter must be encrypted before saving")
)
