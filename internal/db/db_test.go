package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)

	require.NoError(t, EnsureSchema(database))
	require.NoError(t, EnsureSchema(database))
}

func TestForeignKeysEnabled(t *testing.T) {
	database := NewTestDB(t)

	var on int
	require.NoError(t, database.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
	assert.Equal(t, 1, on)
}

func TestWithTxCommitAndRollback(t *testing.T) {
	database := NewTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, database, func(tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('a', '1')`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(ctx, database, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('b', '2')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count))
	assert.Equal(t, 1, count, "rolled back insert must not persist")
}

func TestIsUniqueViolation(t *testing.T) {
	database := NewTestDB(t)
	now := time.Now().UTC()

	_, err := database.Exec(`INSERT INTO bases (name, code, created_at, updated_at) VALUES ('A', 'X1', ?, ?)`, now, now)
	require.NoError(t, err)

	_, err = database.Exec(`INSERT INTO bases (name, code, created_at, updated_at) VALUES ('B', 'X1', ?, ?)`, now, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestTimeRoundTrip(t *testing.T) {
	database := NewTestDB(t)
	now := time.Date(2024, 5, 6, 7, 8, 9, 500, time.UTC)

	_, err := database.Exec(`INSERT INTO bases (name, code, created_at, updated_at) VALUES ('A', 'X1', ?, ?)`, now, now)
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, database.QueryRow(`SELECT created_at FROM bases`).Scan(&got))
	assert.True(t, now.Equal(got), "expected %v, got %v", now, got)
}
