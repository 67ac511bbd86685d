package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/erazemk/arzenal/internal/db"
)

const jwtSecretKey = "jwt_secret"

// GetSetting returns a setting's value and whether it exists.
func GetSetting(ctx context.Context, q db.DBTX, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting setting %s: %w", key, err)
	}
	return value, true, nil
}

// EnsureSetting stores candidate under key unless a value already exists,
// then returns the stored value. INSERT OR IGNORE + re-SELECT avoids a race
// between concurrent first starts.
func EnsureSetting(ctx context.Context, q db.DBTX, key, candidate string) (string, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, candidate,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}

	value, _, err := GetSetting(ctx, q, key)
	return value, err
}

// GetJWTSecret returns the token signing secret, generating it on first use.
func GetJWTSecret(ctx context.Context, q db.DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return EnsureSetting(ctx, q, jwtSecretKey, hex.EncodeToString(buf))
}
