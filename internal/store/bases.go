package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

// CreateBase creates a new base.
func CreateBase(ctx context.Context, q db.DBTX, name, code, location string, now time.Time) (*model.Base, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO bases (name, code, location, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, code, location, now, now,
	)
	if err != nil {
		return nil, conflictOr(err, fmt.Sprintf("base code %q already exists", code), func(err error) error {
			return fmt.Errorf("creating base: %w", err)
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting base id: %w", err)
	}

	return GetBase(ctx, q, id)
}

// GetBase returns a base by ID.
func GetBase(ctx context.Context, q db.DBTX, id int64) (*model.Base, error) {
	b := &model.Base{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, code, location, created_at, updated_at FROM bases WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Code, &b.Location, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting base: %w", err)
	}
	return b, nil
}

// ListBases returns bases ordered by code. A non-nil onlyID restricts the
// result to that base.
func ListBases(ctx context.Context, q db.DBTX, onlyID *int64) ([]model.Base, error) {
	query := `SELECT id, name, code, location, created_at, updated_at FROM bases`
	var args []any
	if onlyID != nil {
		query += ` WHERE id = ?`
		args = append(args, *onlyID)
	}
	query += ` ORDER BY code`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bases: %w", err)
	}
	defer rows.Close()

	var bases []model.Base
	for rows.Next() {
		var b model.Base
		if err := rows.Scan(&b.ID, &b.Name, &b.Code, &b.Location, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning base: %w", err)
		}
		bases = append(bases, b)
	}
	return bases, rows.Err()
}

// UpdateBase updates a base's name, code and location.
func UpdateBase(ctx context.Context, q db.DBTX, id int64, name, code, location string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE bases SET name = ?, code = ?, location = ?, updated_at = ? WHERE id = ?`,
		name, code, location, now, id,
	)
	if err != nil {
		return conflictOr(err, fmt.Sprintf("base code %q already exists", code), func(err error) error {
			return fmt.Errorf("updating base: %w", err)
		})
	}
	return nil
}

// DeleteBase removes a base. Bases still referenced by users, assets or
// workflow records cannot be deleted.
func DeleteBase(ctx context.Context, q db.DBTX, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM bases WHERE id = ?`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.InvalidState("base %d is still referenced", id)
	}
	if err != nil {
		return fmt.Errorf("deleting base: %w", err)
	}
	return nil
}
