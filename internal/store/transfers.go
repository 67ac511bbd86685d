package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

const transferSelect = `SELECT t.id, t.ref, t.from_base_id, t.to_base_id, t.equipment_type_id, t.total_quantity,
	       t.status, t.initiated_by, t.approved_by, t.completed_by, t.transfer_date, t.completion_date,
	       t.transport_details, t.notes, t.created_at, t.updated_at,
	       fb.name, tb.name, et.name, u.username
	FROM transfers t
	JOIN bases fb ON fb.id = t.from_base_id
	JOIN bases tb ON tb.id = t.to_base_id
	JOIN equipment_types et ON et.id = t.equipment_type_id
	JOIN users u ON u.id = t.initiated_by`

func scanTransfer(s scanner) (*model.Transfer, error) {
	t := &model.Transfer{}
	if err := s.Scan(&t.ID, &t.Ref, &t.FromBaseID, &t.ToBaseID, &t.EquipmentTypeID, &t.TotalQuantity,
		&t.Status, &t.InitiatedBy, &t.ApprovedBy, &t.CompletedBy, &t.TransferDate, &t.CompletionDate,
		&t.TransportDetails, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
		&t.FromBaseName, &t.ToBaseName, &t.EquipmentTypeName, &t.InitiatedByName); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTransfer records a transfer and its lines. Asset status changes are
// the caller's job, in the same transaction.
func CreateTransfer(ctx context.Context, q db.DBTX, t *model.Transfer) (*model.Transfer, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO transfers (ref, from_base_id, to_base_id, equipment_type_id, total_quantity, status,
		                        initiated_by, transfer_date, transport_details, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Ref, t.FromBaseID, t.ToBaseID, t.EquipmentTypeID, t.TotalQuantity, t.Status,
		t.InitiatedBy, t.TransferDate, t.TransportDetails, t.Notes, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating transfer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transfer id: %w", err)
	}

	for _, l := range t.Lines {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO transfer_lines (transfer_id, asset_id, quantity) VALUES (?, ?, ?)`,
			id, l.AssetID, l.Quantity,
		); err != nil {
			return nil, fmt.Errorf("recording transfer line: %w", err)
		}
	}

	return GetTransfer(ctx, q, id)
}

// GetTransfer returns a transfer by ID with its lines.
func GetTransfer(ctx context.Context, q db.DBTX, id int64) (*model.Transfer, error) {
	t, err := scanTransfer(q.QueryRowContext(ctx, transferSelect+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	if t.Lines, err = transferLines(ctx, q, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func transferLines(ctx context.Context, q db.DBTX, transferID int64) ([]model.TransferLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT l.asset_id, a.serial_number, l.quantity
		 FROM transfer_lines l
		 JOIN assets a ON a.id = l.asset_id
		 WHERE l.transfer_id = ?
		 ORDER BY l.asset_id`, transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transfer lines: %w", err)
	}
	defer rows.Close()

	lines := []model.TransferLine{}
	for rows.Next() {
		var l model.TransferLine
		if err := rows.Scan(&l.AssetID, &l.SerialNumber, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scanning transfer line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// TransferFilter narrows transfer listings. BaseID matches either end of the
// transfer. CompletedFrom and CompletedTo bound completion_date inclusively.
type TransferFilter struct {
	BaseID          *int64
	FromBaseID      *int64
	ToBaseID        *int64
	EquipmentTypeID *int64
	Status          string
	CompletedFrom   *time.Time
	CompletedTo     *time.Time
}

func (f TransferFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if f.BaseID != nil {
		clause += ` AND (t.from_base_id = ? OR t.to_base_id = ?)`
		args = append(args, *f.BaseID, *f.BaseID)
	}
	if f.FromBaseID != nil {
		clause += ` AND t.from_base_id = ?`
		args = append(args, *f.FromBaseID)
	}
	if f.ToBaseID != nil {
		clause += ` AND t.to_base_id = ?`
		args = append(args, *f.ToBaseID)
	}
	if f.EquipmentTypeID != nil {
		clause += ` AND t.equipment_type_id = ?`
		args = append(args, *f.EquipmentTypeID)
	}
	if f.Status != "" {
		clause += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	if f.CompletedFrom != nil {
		clause += ` AND t.completion_date >= ?`
		args = append(args, f.CompletedFrom.UTC())
	}
	if f.CompletedTo != nil {
		clause += ` AND t.completion_date <= ?`
		args = append(args, f.CompletedTo.UTC())
	}
	return clause, args
}

// ListTransfers returns transfers newest first, with their lines. A positive
// limit pages the result.
func ListTransfers(ctx context.Context, q db.DBTX, f TransferFilter, limit, offset int) ([]model.Transfer, error) {
	where, args := f.where()
	order := ` ORDER BY t.transfer_date DESC, t.id DESC`
	if f.CompletedFrom != nil || f.CompletedTo != nil {
		order = ` ORDER BY t.completion_date DESC, t.id DESC`
	}
	query := transferSelect + where + order
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}

	var transfers []model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}

	// Lines are loaded after the cursor is closed: a single-connection pool
	// cannot run a second query while rows are open.
	for i := range transfers {
		if transfers[i].Lines, err = transferLines(ctx, q, transfers[i].ID); err != nil {
			return nil, err
		}
	}
	return transfers, nil
}

// CountTransfers counts transfers matching the filter.
func CountTransfers(ctx context.Context, q db.DBTX, f TransferFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers t`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transfers: %w", err)
	}
	return n, nil
}

// UpdateTransfer writes a transfer's status, actors, dates and free-text fields.
func UpdateTransfer(ctx context.Context, q db.DBTX, t *model.Transfer) error {
	_, err := q.ExecContext(ctx,
		`UPDATE transfers SET status = ?, approved_by = ?, completed_by = ?, completion_date = ?,
		        transport_details = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		t.Status, t.ApprovedBy, t.CompletedBy, t.CompletionDate,
		t.TransportDetails, t.Notes, t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating transfer: %w", err)
	}
	return nil
}

// DeleteTransfer removes a transfer and its lines.
func DeleteTransfer(ctx context.Context, q db.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM transfers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting transfer: %w", err)
	}
	return nil
}
