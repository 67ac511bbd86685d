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

const equipmentColumns = `id, name, code, category, description, image_mime, created_at, updated_at`

func scanEquipmentType(s scanner) (*model.EquipmentType, error) {
	et := &model.EquipmentType{}
	var imageMime sql.NullString
	if err := s.Scan(&et.ID, &et.Name, &et.Code, &et.Category, &et.Description, &imageMime,
		&et.CreatedAt, &et.UpdatedAt); err != nil {
		return nil, err
	}
	et.ImageMime = imageMime.String
	return et, nil
}

// CreateEquipmentType creates a new equipment type.
func CreateEquipmentType(ctx context.Context, q db.DBTX, name, code, category, description string, now time.Time) (*model.EquipmentType, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO equipment_types (name, code, category, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, code, category, description, now, now,
	)
	if err != nil {
		return nil, conflictOr(err, "equipment type name or code already exists", func(err error) error {
			return fmt.Errorf("creating equipment type: %w", err)
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting equipment type id: %w", err)
	}

	return GetEquipmentType(ctx, q, id)
}

// GetEquipmentType returns an equipment type by ID.
func GetEquipmentType(ctx context.Context, q db.DBTX, id int64) (*model.EquipmentType, error) {
	et, err := scanEquipmentType(q.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment_types WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment type: %w", err)
	}
	return et, nil
}

// ListEquipmentTypes returns equipment types, optionally filtered by category.
func ListEquipmentTypes(ctx context.Context, q db.DBTX, category string) ([]model.EquipmentType, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment_types`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing equipment types: %w", err)
	}
	defer rows.Close()

	var types []model.EquipmentType
	for rows.Next() {
		et, err := scanEquipmentType(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning equipment type: %w", err)
		}
		types = append(types, *et)
	}
	return types, rows.Err()
}

// UpdateEquipmentType updates an equipment type's metadata.
func UpdateEquipmentType(ctx context.Context, q db.DBTX, id int64, name, code, category, description string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE equipment_types SET name = ?, code = ?, category = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		name, code, category, description, now, id,
	)
	if err != nil {
		return conflictOr(err, "equipment type name or code already exists", func(err error) error {
			return fmt.Errorf("updating equipment type: %w", err)
		})
	}
	return nil
}

// DeleteEquipmentType removes an equipment type that nothing references.
func DeleteEquipmentType(ctx context.Context, q db.DBTX, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM equipment_types WHERE id = ?`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.InvalidState("equipment type %d is still referenced", id)
	}
	if err != nil {
		return fmt.Errorf("deleting equipment type: %w", err)
	}
	return nil
}

// SetEquipmentImage sets an equipment type's photo.
func SetEquipmentImage(ctx context.Context, q db.DBTX, id int64, image []byte, mime string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE equipment_types SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, now, id,
	)
	if err != nil {
		return fmt.Errorf("setting equipment image: %w", err)
	}
	return nil
}

// GetEquipmentImage returns an equipment type's photo and MIME type.
func GetEquipmentImage(ctx context.Context, q db.DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM equipment_types WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting equipment image: %w", err)
	}
	return image, mime.String, nil
}
