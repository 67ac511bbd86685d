package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

const assetSelect = `SELECT a.id, a.serial_number, a.equipment_type_id, a.base_id, a.status, a.condition,
	       a.quantity, a.purchase_id, a.notes, a.created_at, a.updated_at,
	       et.name, et.code, b.name
	FROM assets a
	JOIN equipment_types et ON et.id = a.equipment_type_id
	JOIN bases b ON b.id = a.base_id`

// openExpenditureRef matches assets backing a PENDING or APPROVED expenditure.
const openExpenditureRef = `EXISTS (
	SELECT 1 FROM expenditure_assets ea
	JOIN expenditures e ON e.id = ea.expenditure_id
	WHERE ea.asset_id = a.id AND e.status IN ('PENDING', 'APPROVED'))`

func scanAsset(s scanner) (*model.Asset, error) {
	a := &model.Asset{}
	if err := s.Scan(&a.ID, &a.SerialNumber, &a.EquipmentTypeID, &a.BaseID, &a.Status, &a.Condition,
		&a.Quantity, &a.PurchaseID, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&a.EquipmentTypeName, &a.EquipmentTypeCode, &a.BaseName); err != nil {
		return nil, err
	}
	return a, nil
}

func queryAssets(ctx context.Context, q db.DBTX, query string, args ...any) ([]model.Asset, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// NextSerialNumber returns the next "A###" serial: one more than the largest
// numeric suffix among serials of the form A<digits>. Call it inside the
// transaction that inserts the asset.
func NextSerialNumber(ctx context.Context, q db.DBTX) (string, error) {
	serials, err := NextSerialNumbers(ctx, q, 1)
	if err != nil {
		return "", err
	}
	return serials[0], nil
}

// NextSerialNumbers returns n consecutive serials following the largest one
// in use, reading the table once.
func NextSerialNumbers(ctx context.Context, q db.DBTX, n int) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT serial_number FROM assets WHERE serial_number GLOB 'A[0-9]*'`)
	if err != nil {
		return nil, fmt.Errorf("reading serial numbers: %w", err)
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var serial string
		if err := rows.Scan(&serial); err != nil {
			return nil, fmt.Errorf("scanning serial number: %w", err)
		}
		if v, ok := serialSuffix(serial); ok && v > highest {
			highest = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading serial numbers: %w", err)
	}

	serials := make([]string, n)
	for i := range serials {
		serials[i] = fmt.Sprintf("A%03d", highest+i+1)
	}
	return serials, nil
}

// serialSuffix parses the digits of an A<digits> serial.
func serialSuffix(serial string) (int, bool) {
	if len(serial) < 2 || serial[0] != 'A' {
		return 0, false
	}
	for _, c := range serial[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(serial[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// CreateAsset inserts an asset. SerialNumber, Status and Condition must be set.
func CreateAsset(ctx context.Context, q db.DBTX, a *model.Asset) (*model.Asset, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO assets (serial_number, equipment_type_id, base_id, status, condition, quantity,
		                     purchase_id, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SerialNumber, a.EquipmentTypeID, a.BaseID, a.Status, a.Condition, a.Quantity,
		a.PurchaseID, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, conflictOr(err, fmt.Sprintf("serial number %q already exists", a.SerialNumber), func(err error) error {
			return fmt.Errorf("creating asset: %w", err)
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting asset id: %w", err)
	}

	return GetAsset(ctx, q, id)
}

// GetAsset returns an asset by ID.
func GetAsset(ctx context.Context, q db.DBTX, id int64) (*model.Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx, assetSelect+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// GetAssets returns the assets with the given IDs keyed by ID. Missing IDs
// are simply absent from the map.
func GetAssets(ctx context.Context, q db.DBTX, ids []int64) (map[int64]*model.Asset, error) {
	found := make(map[int64]*model.Asset, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	assets, err := queryAssets(ctx, q,
		assetSelect+` WHERE a.id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		found[assets[i].ID] = &assets[i]
	}
	return found, nil
}

// AssetFilter narrows ListAssets. Zero values match everything.
type AssetFilter struct {
	BaseID          *int64
	EquipmentTypeID *int64
	PurchaseID      *int64
	Status          string
	Condition       string
}

// ListAssets returns assets matching the filter, oldest first.
func ListAssets(ctx context.Context, q db.DBTX, f AssetFilter) ([]model.Asset, error) {
	query := assetSelect + ` WHERE 1=1`
	var args []any

	if f.BaseID != nil {
		query += ` AND a.base_id = ?`
		args = append(args, *f.BaseID)
	}
	if f.EquipmentTypeID != nil {
		query += ` AND a.equipment_type_id = ?`
		args = append(args, *f.EquipmentTypeID)
	}
	if f.PurchaseID != nil {
		query += ` AND a.purchase_id = ?`
		args = append(args, *f.PurchaseID)
	}
	if f.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, f.Status)
	}
	if f.Condition != "" {
		query += ` AND a.condition = ?`
		args = append(args, f.Condition)
	}

	query += ` ORDER BY a.created_at, a.id`
	return queryAssets(ctx, q, query, args...)
}

// ListAllocatableAssets returns the allocation candidates at a base for an
// equipment type: assets in one of the given statuses with a positive
// quantity, not already backing an open expenditure, oldest first.
func ListAllocatableAssets(ctx context.Context, q db.DBTX, baseID, equipmentTypeID int64, statuses []string) ([]model.Asset, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	args := []any{baseID, equipmentTypeID}
	args = append(args, stringArgs(statuses)...)

	return queryAssets(ctx, q,
		assetSelect+`
		WHERE a.base_id = ? AND a.equipment_type_id = ?
		  AND a.status IN (`+placeholders(len(statuses))+`)
		  AND a.quantity > 0
		  AND NOT `+openExpenditureRef+`
		ORDER BY a.created_at, a.id`,
		args...)
}

// AssetInOpenExpenditure reports whether a PENDING or APPROVED expenditure
// references the asset.
func AssetInOpenExpenditure(ctx context.Context, q db.DBTX, id int64) (bool, error) {
	var open bool
	err := q.QueryRowContext(ctx,
		`SELECT `+openExpenditureRef+` FROM assets a WHERE a.id = ?`, id,
	).Scan(&open)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking open expenditures: %w", err)
	}
	return open, nil
}

// AssetReferenced reports whether any workflow record references the asset.
func AssetReferenced(ctx context.Context, q db.DBTX, id int64) (bool, error) {
	var referenced bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transfer_lines WHERE asset_id = ?)
		     OR EXISTS (SELECT 1 FROM expenditure_assets WHERE asset_id = ?)
		     OR EXISTS (SELECT 1 FROM assignments WHERE asset_id = ?)`,
		id, id, id,
	).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("checking asset references: %w", err)
	}
	return referenced, nil
}

// UpdateAsset writes an asset's mutable state.
func UpdateAsset(ctx context.Context, q db.DBTX, a *model.Asset) error {
	_, err := q.ExecContext(ctx,
		`UPDATE assets SET base_id = ?, status = ?, condition = ?, quantity = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		a.BaseID, a.Status, a.Condition, a.Quantity, a.Notes, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}
	return nil
}

// SetAssetsStatus sets the status of several assets at once.
func SetAssetsStatus(ctx context.Context, q db.DBTX, ids []int64, status string, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{status, now}, int64Args(ids)...)
	_, err := q.ExecContext(ctx,
		`UPDATE assets SET status = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("setting asset status: %w", err)
	}
	return nil
}

// ExpendAssets marks assets EXPENDED and UNSERVICEABLE.
func ExpendAssets(ctx context.Context, q db.DBTX, ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{model.AssetExpended, model.ConditionUnserviceable, now}, int64Args(ids)...)
	_, err := q.ExecContext(ctx,
		`UPDATE assets SET status = ?, condition = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("expending assets: %w", err)
	}
	return nil
}

// MoveAssets relocates assets to a base and makes them AVAILABLE there.
func MoveAssets(ctx context.Context, q db.DBTX, ids []int64, baseID int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{baseID, model.AssetAvailable, now}, int64Args(ids)...)
	_, err := q.ExecContext(ctx,
		`UPDATE assets SET base_id = ?, status = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("moving assets: %w", err)
	}
	return nil
}

// DeleteAsset hard-deletes an asset.
func DeleteAsset(ctx context.Context, q db.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return nil
}
