package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/arzenal/internal/db"
)

// RevokeToken adds a token's JTI to the revocation list until it expires.
// Expired revocations are dropped on the way.
func RevokeToken(ctx context.Context, q db.DBTX, jti string, expiresAt, now time.Time) error {
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	if _, err := q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now,
	); err != nil {
		return fmt.Errorf("pruning revoked tokens: %w", err)
	}
	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q db.DBTX, jti string) (bool, error) {
	var revoked bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}
