package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// encodeJSON сериализует значение для TEXT колонки
func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode json column: %w", err)
	}
	return string(data), nil
}

// nullableJSON возвращает nil для nil указателя, иначе JSON строку
func nullableJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return encodeJSON(v)
}

// decodeJSON разбирает TEXT колонку в dst
func decodeJSON(data string, dst any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	return nil
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки
func expectAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// boolToInt - SQLite хранит bool как INTEGER
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
