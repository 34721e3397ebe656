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

const inheritanceColumns = `id, vault_id, original_owner_id, initiated_by, inheritance_type, trigger_event,
	trigger_date, delay_hours, due_at, status, notifications_sent, created_at, completed_at`

// CreateInheritance inserts a pending record.
// Частичный уникальный индекс не дает создать вторую открытую запись.
func (q *queries) CreateInheritance(ctx context.Context, record *models.VaultInheritance) error {
	query := `
		INSERT INTO vault_inheritances (id, vault_id, original_owner_id, initiated_by, inheritance_type,
			trigger_event, trigger_date, delay_hours, due_at, status, notifications_sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, query,
		record.ID,
		record.VaultID,
		record.OriginalOwnerID,
		record.InitiatedBy,
		string(record.Type),
		string(record.TriggerEvent),
		utc(record.TriggerDate),
		record.DelayHours,
		utc(record.DueAt),
		string(record.Status),
		boolToInt(record.NotificationsSent),
		utc(record.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrInheritanceExists
		}
		return fmt.Errorf("failed to insert inheritance: %w", err)
	}

	return nil
}

// GetInheritance retrieves record by ID
func (q *queries) GetInheritance(ctx context.Context, id string) (*models.VaultInheritance, error) {
	query := `SELECT ` + inheritanceColumns + ` FROM vault_inheritances WHERE id = ?`
	return getInheritance(q.db.QueryRowContext(ctx, query, id))
}

// GetOpenInheritance returns pending or active record for vault
func (q *queries) GetOpenInheritance(ctx context.Context, vaultID string) (*models.VaultInheritance, error) {
	query := `
		SELECT ` + inheritanceColumns + `
		FROM vault_inheritances
		WHERE vault_id = ? AND status IN ('pending', 'active')
	`
	return getInheritance(q.db.QueryRowContext(ctx, query, vaultID))
}

func getInheritance(row *sql.Row) (*models.VaultInheritance, error) {
	record, err := scanInheritance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrInheritanceNotFound
		}
		return nil, fmt.Errorf("failed to get inheritance: %w", err)
	}
	return record, nil
}

// ListDueInheritances returns pending records with due_at <= now
func (q *queries) ListDueInheritances(ctx context.Context, now time.Time) ([]*models.VaultInheritance, error) {
	query := `
		SELECT ` + inheritanceColumns + `
		FROM vault_inheritances
		WHERE status = 'pending' AND due_at <= ?
		ORDER BY due_at ASC
	`

	rows, err := q.db.QueryContext(ctx, query, utc(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query due inheritances: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*models.VaultInheritance
	for rows.Next() {
		record, err := scanInheritance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inheritance: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

func scanInheritance(row rowScanner) (*models.VaultInheritance, error) {
	record := &models.VaultInheritance{}
	var (
		inheritanceType, triggerEvent, status string
		completedAt                           sql.NullTime
	)

	if err := row.Scan(
		&record.ID,
		&record.VaultID,
		&record.OriginalOwnerID,
		&record.InitiatedBy,
		&inheritanceType,
		&triggerEvent,
		&record.TriggerDate,
		&record.DelayHours,
		&record.DueAt,
		&status,
		&record.NotificationsSent,
		&record.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	record.Type = models.InheritanceType(inheritanceType)
	record.TriggerEvent = models.TriggerEvent(triggerEvent)
	record.Status = models.InheritanceStatus(status)
	record.CompletedAt = timePtr(completedAt)

	return record, nil
}

// TransitionInheritance atomically moves record between statuses
func (q *queries) TransitionInheritance(ctx context.Context, id string, from, to models.InheritanceStatus, completedAt *time.Time) error {
	query := `
		UPDATE vault_inheritances
		SET status = ?, completed_at = COALESCE(completed_at, ?)
		WHERE id = ? AND status = ?
	`

	result, err := q.db.ExecContext(ctx, query, string(to), utcPtr(completedAt), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to transition inheritance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := q.GetInheritance(ctx, id); err != nil {
			return err
		}
		return storage.ErrStaleState
	}

	return nil
}

// MarkNotificationsSent sets notifications_sent flag
func (q *queries) MarkNotificationsSent(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, `UPDATE vault_inheritances SET notifications_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notifications sent: %w", err)
	}

	return expectAffected(result, storage.ErrInheritanceNotFound)
}
