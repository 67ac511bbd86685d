package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

const assignmentSelect = `SELECT s.id, s.ref, s.asset_id, s.assignee_id, s.base_id, s.assignment_date,
	       s.expected_return_date, s.actual_return_date, s.status, s.assigned_by, s.purpose, s.notes,
	       s.created_at, s.updated_at,
	       a.serial_number, CASE WHEN u.full_name <> '' THEN u.full_name ELSE u.username END, b.name
	FROM assignments s
	JOIN assets a ON a.id = s.asset_id
	JOIN users u ON u.id = s.assignee_id
	JOIN bases b ON b.id = s.base_id`

func scanAssignment(sc scanner) (*model.Assignment, error) {
	s := &model.Assignment{}
	if err := sc.Scan(&s.ID, &s.Ref, &s.AssetID, &s.AssigneeID, &s.BaseID, &s.AssignmentDate,
		&s.ExpectedReturnDate, &s.ActualReturnDate, &s.Status, &s.AssignedBy, &s.Purpose, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
		&s.SerialNumber, &s.AssigneeName, &s.BaseName); err != nil {
		return nil, err
	}
	return s, nil
}

func queryAssignments(ctx context.Context, q db.DBTX, query string, args ...any) ([]model.Assignment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		s, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *s)
	}
	return assignments, rows.Err()
}

// CreateAssignment inserts an assignment. The partial unique index on
// active assignments rejects a second ACTIVE row for the same asset.
func CreateAssignment(ctx context.Context, q db.DBTX, s *model.Assignment) (*model.Assignment, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO assignments (ref, asset_id, assignee_id, base_id, assignment_date, expected_return_date,
		                          status, assigned_by, purpose, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Ref, s.AssetID, s.AssigneeID, s.BaseID, s.AssignmentDate, s.ExpectedReturnDate,
		s.Status, s.AssignedBy, s.Purpose, s.Notes, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return nil, conflictOr(err, fmt.Sprintf("asset %d already has an active assignment", s.AssetID), func(err error) error {
			return fmt.Errorf("creating assignment: %w", err)
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting assignment id: %w", err)
	}

	return GetAssignment(ctx, q, id)
}

// GetAssignment returns an assignment by ID.
func GetAssignment(ctx context.Context, q db.DBTX, id int64) (*model.Assignment, error) {
	s, err := scanAssignment(q.QueryRowContext(ctx, assignmentSelect+` WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return s, nil
}

// AssignmentFilter narrows ListAssignments.
type AssignmentFilter struct {
	BaseID     *int64
	AssetID    *int64
	AssigneeID *int64
	Status     string
}

// ListAssignments returns assignments newest first.
func ListAssignments(ctx context.Context, q db.DBTX, f AssignmentFilter) ([]model.Assignment, error) {
	query := assignmentSelect + ` WHERE 1=1`
	var args []any

	if f.BaseID != nil {
		query += ` AND s.base_id = ?`
		args = append(args, *f.BaseID)
	}
	if f.AssetID != nil {
		query += ` AND s.asset_id = ?`
		args = append(args, *f.AssetID)
	}
	if f.AssigneeID != nil {
		query += ` AND s.assignee_id = ?`
		args = append(args, *f.AssigneeID)
	}
	if f.Status != "" {
		query += ` AND s.status = ?`
		args = append(args, f.Status)
	}

	query += ` ORDER BY s.assignment_date DESC, s.id DESC`
	return queryAssignments(ctx, q, query, args...)
}

// ActiveAssignmentsForAssets returns the ACTIVE assignments of the given assets.
func ActiveAssignmentsForAssets(ctx context.Context, q db.DBTX, assetIDs []int64) ([]model.Assignment, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}
	args := append([]any{model.AssignmentActive}, int64Args(assetIDs)...)
	return queryAssignments(ctx, q,
		assignmentSelect+` WHERE s.status = ? AND s.asset_id IN (`+placeholders(len(assetIDs))+`)`,
		args...)
}

// UpdateAssignment writes an assignment's mutable fields.
func UpdateAssignment(ctx context.Context, q db.DBTX, s *model.Assignment) error {
	_, err := q.ExecContext(ctx,
		`UPDATE assignments SET expected_return_date = ?, actual_return_date = ?, status = ?,
		        purpose = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		s.ExpectedReturnDate, s.ActualReturnDate, s.Status,
		s.Purpose, s.Notes, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes an assignment.
func DeleteAssignment(ctx context.Context, q db.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting assignment: %w", err)
	}
	return nil
}
