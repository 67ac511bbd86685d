package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

// BalanceFilter selects the assets that make up a balance.
type BalanceFilter struct {
	BaseID          *int64
	EquipmentTypeID *int64
	Statuses        []string
	CreatedBy       time.Time
}

// SumAssetQuantity sums the quantity of assets created on or before
// f.CreatedBy that match the filter.
func SumAssetQuantity(ctx context.Context, q db.DBTX, f BalanceFilter) (int, error) {
	query := `SELECT COALESCE(SUM(a.quantity), 0) FROM assets a WHERE a.created_at <= ?`
	args := []any{f.CreatedBy.UTC()}

	if f.BaseID != nil {
		query += ` AND a.base_id = ?`
		args = append(args, *f.BaseID)
	}
	if f.EquipmentTypeID != nil {
		query += ` AND a.equipment_type_id = ?`
		args = append(args, *f.EquipmentTypeID)
	}
	if len(f.Statuses) > 0 {
		query += ` AND a.status IN (` + placeholders(len(f.Statuses)) + `)`
		args = append(args, stringArgs(f.Statuses)...)
	}

	var sum int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("summing asset quantity: %w", err)
	}
	return sum, nil
}

// Totals is a grouped count and quantity sum over workflow records.
type Totals struct {
	Count    int
	Quantity int
}

// SumPurchases totals purchases matching the filter.
func SumPurchases(ctx context.Context, q db.DBTX, f PurchaseFilter) (Totals, error) {
	where, args := f.where()
	var t Totals
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(p.quantity), 0) FROM purchases p`+where, args...,
	).Scan(&t.Count, &t.Quantity); err != nil {
		return Totals{}, fmt.Errorf("summing purchases: %w", err)
	}
	return t, nil
}

// SumPurchaseValue adds up total_amount of matching purchases. Amounts are
// stored as decimal strings, so the sum is done here rather than in SQL to
// keep it exact.
func SumPurchaseValue(ctx context.Context, q db.DBTX, f PurchaseFilter) (decimal.Decimal, error) {
	where, args := f.where()
	rows, err := q.QueryContext(ctx, `SELECT p.total_amount FROM purchases p`+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing purchase value: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scanning purchase amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// SumTransfers totals transfers matching the filter.
func SumTransfers(ctx context.Context, q db.DBTX, f TransferFilter) (Totals, error) {
	where, args := f.where()
	var t Totals
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(t.total_quantity), 0) FROM transfers t`+where, args...,
	).Scan(&t.Count, &t.Quantity); err != nil {
		return Totals{}, fmt.Errorf("summing transfers: %w", err)
	}
	return t, nil
}

// SumExpenditures totals expenditures matching the filter.
func SumExpenditures(ctx context.Context, q db.DBTX, f ExpenditureFilter) (Totals, error) {
	where, args := f.where()
	var t Totals
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(e.quantity), 0) FROM expenditures e`+where, args...,
	).Scan(&t.Count, &t.Quantity); err != nil {
		return Totals{}, fmt.Errorf("summing expenditures: %w", err)
	}
	return t, nil
}

// CountActiveAssignments counts ACTIVE assignments at a base, optionally
// only those whose asset has the given equipment type.
func CountActiveAssignments(ctx context.Context, q db.DBTX, baseID, equipmentTypeID *int64) (int, error) {
	query := `SELECT COUNT(*) FROM assignments s JOIN assets a ON a.id = s.asset_id WHERE s.status = ?`
	args := []any{model.AssignmentActive}

	if baseID != nil {
		query += ` AND s.base_id = ?`
		args = append(args, *baseID)
	}
	if equipmentTypeID != nil {
		query += ` AND a.equipment_type_id = ?`
		args = append(args, *equipmentTypeID)
	}

	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting active assignments: %w", err)
	}
	return n, nil
}
