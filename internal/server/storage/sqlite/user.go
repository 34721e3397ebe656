package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

const userColumns = `id, username, auth_key_hash, public_salt, role, envelope, created_at, updated_at, last_login`

// CreateUser creates a new user in the storage
func (q *queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, auth_key_hash, public_salt, role, envelope, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	envelope, err := nullableJSON(user.Envelope)
	if err != nil {
		return err
	}
	updatedAt := user.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = user.CreatedAt
	}

	_, err = q.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.AuthKeyHash,
		user.PublicSalt,
		role,
		envelope,
		utc(user.CreatedAt),
		utc(updatedAt),
		utcPtr(user.LastLogin),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (q *queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return scanUser(q.db.QueryRowContext(ctx, query, username))
}

// GetUserByID retrieves user by ID
func (q *queries) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(q.db.QueryRowContext(ctx, query, userID))
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var (
		lastLogin sql.NullTime
		envelope  sql.NullString
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.AuthKeyHash,
		&user.PublicSalt,
		&user.Role,
		&envelope,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.LastLogin = timePtr(lastLogin)
	if envelope.Valid {
		user.Envelope = &models.MasterKeyEnvelope{}
		if err := decodeJSON(envelope.String, user.Envelope); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// UpdateLastLogin updates the last login timestamp
func (q *queries) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`

	result, err := q.db.ExecContext(ctx, query, utc(lastLogin), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return expectAffected(result, storage.ErrUserNotFound)
}

// SetEncryptionEnvelope persists envelope only if none is set yet
func (q *queries) SetEncryptionEnvelope(ctx context.Context, userID string, envelope *models.MasterKeyEnvelope) error {
	if envelope == nil {
		return fmt.Errorf("envelope cannot be nil")
	}
	encoded, err := encodeJSON(envelope)
	if err != nil {
		return err
	}

	query := `UPDATE users SET envelope = ?, updated_at = ? WHERE id = ? AND envelope IS NULL`

	result, err := q.db.ExecContext(ctx, query, encoded, utc(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("failed to set envelope: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := q.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return storage.ErrEnvelopeAlreadySet
	}

	return nil
}
