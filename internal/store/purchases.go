package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

const purchaseSelect = `SELECT p.id, p.ref, p.base_id, p.equipment_type_id, p.quantity, p.unit_price, p.total_amount,
	       p.supplier_name, p.supplier_contact, p.purchase_date, p.delivery_date, p.status,
	       p.created_by, p.notes, p.created_at, p.updated_at,
	       b.name, et.name, u.username
	FROM purchases p
	JOIN bases b ON b.id = p.base_id
	JOIN equipment_types et ON et.id = p.equipment_type_id
	JOIN users u ON u.id = p.created_by`

func scanPurchase(s scanner) (*model.Purchase, error) {
	p := &model.Purchase{}
	if err := s.Scan(&p.ID, &p.Ref, &p.BaseID, &p.EquipmentTypeID, &p.Quantity, &p.UnitPrice, &p.TotalAmount,
		&p.SupplierName, &p.SupplierContact, &p.PurchaseDate, &p.DeliveryDate, &p.Status,
		&p.CreatedBy, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
		&p.BaseName, &p.EquipmentTypeName, &p.CreatedByName); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePurchase inserts a purchase and returns it as stored.
func CreatePurchase(ctx context.Context, q db.DBTX, p *model.Purchase) (*model.Purchase, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO purchases (ref, base_id, equipment_type_id, quantity, unit_price, total_amount,
		                        supplier_name, supplier_contact, purchase_date, status, created_by, notes,
		                        created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Ref, p.BaseID, p.EquipmentTypeID, p.Quantity, p.UnitPrice, p.TotalAmount,
		p.SupplierName, p.SupplierContact, p.PurchaseDate, p.Status, p.CreatedBy, p.Notes,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating purchase: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting purchase id: %w", err)
	}

	return GetPurchase(ctx, q, id)
}

// GetPurchase returns a purchase by ID together with the IDs of its assets.
func GetPurchase(ctx context.Context, q db.DBTX, id int64) (*model.Purchase, error) {
	p, err := scanPurchase(q.QueryRowContext(ctx, purchaseSelect+` WHERE p.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting purchase: %w", err)
	}

	p.AssetIDs = []int64{}
	rows, err := q.QueryContext(ctx, `SELECT id FROM assets WHERE purchase_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("listing purchase assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assetID int64
		if err := rows.Scan(&assetID); err != nil {
			return nil, fmt.Errorf("scanning purchase asset: %w", err)
		}
		p.AssetIDs = append(p.AssetIDs, assetID)
	}
	return p, rows.Err()
}

// PurchaseFilter narrows purchase listings. From and To bound purchase_date
// inclusively.
type PurchaseFilter struct {
	BaseID          *int64
	EquipmentTypeID *int64
	Status          string
	ExcludeStatus   string
	From, To        *time.Time
}

func (f PurchaseFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if f.BaseID != nil {
		clause += ` AND p.base_id = ?`
		args = append(args, *f.BaseID)
	}
	if f.EquipmentTypeID != nil {
		clause += ` AND p.equipment_type_id = ?`
		args = append(args, *f.EquipmentTypeID)
	}
	if f.Status != "" {
		clause += ` AND p.status = ?`
		args = append(args, f.Status)
	}
	if f.ExcludeStatus != "" {
		clause += ` AND p.status <> ?`
		args = append(args, f.ExcludeStatus)
	}
	if f.From != nil {
		clause += ` AND p.purchase_date >= ?`
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clause += ` AND p.purchase_date <= ?`
		args = append(args, f.To.UTC())
	}
	return clause, args
}

// ListPurchases returns purchases newest first. A positive limit pages the result.
func ListPurchases(ctx context.Context, q db.DBTX, f PurchaseFilter, limit, offset int) ([]model.Purchase, error) {
	where, args := f.where()
	query := purchaseSelect + where + ` ORDER BY p.purchase_date DESC, p.id DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

// CountPurchases counts purchases matching the filter.
func CountPurchases(ctx context.Context, q db.DBTX, f PurchaseFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases p`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting purchases: %w", err)
	}
	return n, nil
}

// UpdatePurchase writes a purchase's mutable fields.
func UpdatePurchase(ctx context.Context, q db.DBTX, p *model.Purchase) error {
	_, err := q.ExecContext(ctx,
		`UPDATE purchases SET quantity = ?, unit_price = ?, total_amount = ?, supplier_name = ?,
		        supplier_contact = ?, purchase_date = ?, delivery_date = ?, status = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		p.Quantity, p.UnitPrice, p.TotalAmount, p.SupplierName,
		p.SupplierContact, p.PurchaseDate, p.DeliveryDate, p.Status, p.Notes, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating purchase: %w", err)
	}
	return nil
}

// DeletePurchase removes a purchase.
func DeletePurchase(ctx context.Context, q db.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting purchase: %w", err)
	}
	return nil
}
