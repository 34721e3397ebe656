package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iudanet/legacyvault/internal/server/storage"
)

// dbtx - общее подмножество *sql.DB и *sql.Tx, через которое работают все запросы
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries реализует все репозитории поверх dbtx.
// Storage использует *sql.DB, WithTx - *sql.Tx.
type queries struct {
	db dbtx
}

// WithTx выполняет fn в одной транзакции.
// Commit при успехе, Rollback при ошибке или панике (панику пробрасывает дальше).
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.VaultStore) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(ctx, &queries{db: tx})
}
