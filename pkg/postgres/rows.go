package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// SaveRows replaces the stored rows of a kind inside one transaction
func (d *DB) SaveRows(ctx context.Context, kind model.EntityKind, rows []model.Row) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM entity_rows WHERE kind = $1`, string(kind)); err != nil {
		return fmt.Errorf("failed to clear %s rows: %w", kind, err)
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode %s row %d: %w", kind, i, err)
		}
		batch.Queue(`
			INSERT INTO entity_rows (kind, position, data)
			VALUES ($1, $2, $3::jsonb)
		`, string(kind), i, string(data))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert %s rows: %w", kind, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRows returns the stored rows of a kind in upload order
func (d *DB) GetRows(ctx context.Context, kind model.EntityKind) ([]model.Row, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT data
		FROM entity_rows
		WHERE kind = $1
		ORDER BY position
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s rows: %w", kind, err)
	}
	defer rows.Close()

	result := []model.Row{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", kind, err)
		}
		var row model.Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", kind, err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", kind, err)
	}

	return result, nil
}
