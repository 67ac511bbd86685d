package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

const expenditureSelect = `SELECT e.id, e.ref, e.equipment_type_id, e.base_id, e.quantity, e.expenditure_date,
	       e.reason, e.status, e.authorized_by, e.approved_by, e.completed_by, e.completed_date,
	       e.operation_details, e.notes, e.created_at, e.updated_at,
	       et.name, b.name
	FROM expenditures e
	JOIN equipment_types et ON et.id = e.equipment_type_id
	JOIN bases b ON b.id = e.base_id`

func scanExpenditure(s scanner) (*model.Expenditure, error) {
	e := &model.Expenditure{}
	if err := s.Scan(&e.ID, &e.Ref, &e.EquipmentTypeID, &e.BaseID, &e.Quantity, &e.ExpenditureDate,
		&e.Reason, &e.Status, &e.AuthorizedBy, &e.ApprovedBy, &e.CompletedBy, &e.CompletedDate,
		&e.OperationDetails, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		&e.EquipmentTypeName, &e.BaseName); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateExpenditure records an expenditure and the assets backing it.
func CreateExpenditure(ctx context.Context, q db.DBTX, e *model.Expenditure) (*model.Expenditure, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO expenditures (ref, equipment_type_id, base_id, quantity, expenditure_date, reason, status,
		                           authorized_by, operation_details, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Ref, e.EquipmentTypeID, e.BaseID, e.Quantity, e.ExpenditureDate, e.Reason, e.Status,
		e.AuthorizedBy, e.OperationDetails, e.Notes, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating expenditure: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting expenditure id: %w", err)
	}

	for _, a := range e.Assets {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO expenditure_assets (expenditure_id, asset_id, quantity) VALUES (?, ?, ?)`,
			id, a.AssetID, a.Quantity,
		); err != nil {
			return nil, fmt.Errorf("recording expenditure asset: %w", err)
		}
	}

	return GetExpenditure(ctx, q, id)
}

// GetExpenditure returns an expenditure by ID with its backing assets.
func GetExpenditure(ctx context.Context, q db.DBTX, id int64) (*model.Expenditure, error) {
	e, err := scanExpenditure(q.QueryRowContext(ctx, expenditureSelect+` WHERE e.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting expenditure: %w", err)
	}

	if e.Assets, err = expenditureAssets(ctx, q, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func expenditureAssets(ctx context.Context, q db.DBTX, expenditureID int64) ([]model.ExpenditureAsset, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ea.asset_id, a.serial_number, ea.quantity
		 FROM expenditure_assets ea
		 JOIN assets a ON a.id = ea.asset_id
		 WHERE ea.expenditure_id = ?
		 ORDER BY ea.asset_id`, expenditureID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing expenditure assets: %w", err)
	}
	defer rows.Close()

	assets := []model.ExpenditureAsset{}
	for rows.Next() {
		var a model.ExpenditureAsset
		if err := rows.Scan(&a.AssetID, &a.SerialNumber, &a.Quantity); err != nil {
			return nil, fmt.Errorf("scanning expenditure asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// ExpenditureFilter narrows ListExpenditures. CompletedFrom and CompletedTo
// bound completed_date inclusively.
type ExpenditureFilter struct {
	BaseID          *int64
	EquipmentTypeID *int64
	Status          string
	Reason          string
	CompletedFrom   *time.Time
	CompletedTo     *time.Time
}

func (f ExpenditureFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if f.BaseID != nil {
		clause += ` AND e.base_id = ?`
		args = append(args, *f.BaseID)
	}
	if f.EquipmentTypeID != nil {
		clause += ` AND e.equipment_type_id = ?`
		args = append(args, *f.EquipmentTypeID)
	}
	if f.Status != "" {
		clause += ` AND e.status = ?`
		args = append(args, f.Status)
	}
	if f.Reason != "" {
		clause += ` AND e.reason = ?`
		args = append(args, f.Reason)
	}
	if f.CompletedFrom != nil {
		clause += ` AND e.completed_date >= ?`
		args = append(args, f.CompletedFrom.UTC())
	}
	if f.CompletedTo != nil {
		clause += ` AND e.completed_date <= ?`
		args = append(args, f.CompletedTo.UTC())
	}
	return clause, args
}

// ListExpenditures returns expenditures newest first, with their assets.
func ListExpenditures(ctx context.Context, q db.DBTX, f ExpenditureFilter) ([]model.Expenditure, error) {
	where, args := f.where()
	rows, err := q.QueryContext(ctx, expenditureSelect+where+` ORDER BY e.expenditure_date DESC, e.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing expenditures: %w", err)
	}

	var expenditures []model.Expenditure
	for rows.Next() {
		e, err := scanExpenditure(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning expenditure: %w", err)
		}
		expenditures = append(expenditures, *e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("listing expenditures: %w", err)
	}

	for i := range expenditures {
		if expenditures[i].Assets, err = expenditureAssets(ctx, q, expenditures[i].ID); err != nil {
			return nil, err
		}
	}
	return expenditures, nil
}

// UpdateExpenditure writes an expenditure's mutable fields.
func UpdateExpenditure(ctx context.Context, q db.DBTX, e *model.Expenditure) error {
	_, err := q.ExecContext(ctx,
		`UPDATE expenditures SET reason = ?, status = ?, approved_by = ?, completed_by = ?, completed_date = ?,
		        operation_details = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		e.Reason, e.Status, e.ApprovedBy, e.CompletedBy, e.CompletedDate,
		e.OperationDetails, e.Notes, e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating expenditure: %w", err)
	}
	return nil
}

// DeleteExpenditure removes an expenditure and its asset references.
func DeleteExpenditure(ctx context.Context, q db.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM expenditures WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting expenditure: %w", err)
	}
	return nil
}
