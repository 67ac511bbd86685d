package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

const userColumns = `id, username, password_hash, full_name, role, base_id, created_at, deleted_at`

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.BaseID,
		&u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, q db.DBTX, username, passwordHash, fullName, role string, baseID *int64, now time.Time) (*model.User, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, full_name, role, base_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		username, passwordHash, fullName, role, baseID, now,
	)
	if err != nil {
		return nil, conflictOr(err, fmt.Sprintf("username %q already exists", username), func(err error) error {
			return fmt.Errorf("creating user: %w", err)
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID, including soft-deleted users.
func GetUser(ctx context.Context, q db.DBTX, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given username.
func GetUserByUsername(ctx context.Context, q db.DBTX, username string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users, optionally only those of one base.
func ListUsers(ctx context.Context, q db.DBTX, baseID *int64) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	var args []any
	if baseID != nil {
		query += ` AND base_id = ?`
		args = append(args, *baseID)
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's profile, role and home base.
func UpdateUser(ctx context.Context, q db.DBTX, id int64, fullName, role string, baseID *int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET full_name = ?, role = ?, base_id = ? WHERE id = ? AND deleted_at IS NULL`,
		fullName, role, baseID, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q db.DBTX, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user. Workflow records keep pointing at the row.
func DeleteUser(ctx context.Context, q db.DBTX, id int64, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
