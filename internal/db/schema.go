package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Timestamps are always written by the
// application in UTC, so no column relies on CURRENT_TIMESTAMP.
const schema = `
CREATE TABLE IF NOT EXISTS bases (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    code       TEXT NOT NULL UNIQUE,
    location   TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    full_name     TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'user'
                  CHECK (role IN ('admin', 'base_commander', 'logistics_officer', 'user')),
    base_id       INTEGER REFERENCES bases(id),
    created_at    DATETIME NOT NULL,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS equipment_types (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    code        TEXT NOT NULL UNIQUE,
    category    TEXT NOT NULL
                CHECK (category IN ('WEAPON', 'VEHICLE', 'AMMUNITION', 'EQUIPMENT', 'SUPPLY')),
    description TEXT NOT NULL DEFAULT '',
    image       BLOB,
    image_mime  TEXT,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS purchases (
    id                INTEGER PRIMARY KEY,
    ref               TEXT NOT NULL UNIQUE,
    base_id           INTEGER NOT NULL REFERENCES bases(id),
    equipment_type_id INTEGER NOT NULL REFERENCES equipment_types(id),
    quantity          INTEGER NOT NULL CHECK (quantity >= 1),
    unit_price        TEXT NOT NULL,
    total_amount      TEXT NOT NULL,
    supplier_name     TEXT NOT NULL DEFAULT '',
    supplier_contact  TEXT NOT NULL DEFAULT '',
    purchase_date     DATETIME NOT NULL,
    delivery_date     DATETIME,
    status            TEXT NOT NULL DEFAULT 'ORDERED'
                      CHECK (status IN ('ORDERED', 'DELIVERED', 'CANCELLED')),
    created_by        INTEGER NOT NULL REFERENCES users(id),
    notes             TEXT NOT NULL DEFAULT '',
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
    id                INTEGER PRIMARY KEY,
    serial_number     TEXT NOT NULL UNIQUE,
    equipment_type_id INTEGER NOT NULL REFERENCES equipment_types(id),
    base_id           INTEGER NOT NULL REFERENCES bases(id),
    status            TEXT NOT NULL DEFAULT 'AVAILABLE'
                      CHECK (status IN ('AVAILABLE', 'ASSIGNED', 'IN_TRANSIT', 'MAINTENANCE', 'EXPENDED')),
    condition         TEXT NOT NULL DEFAULT 'NEW'
                      CHECK (condition IN ('NEW', 'GOOD', 'FAIR', 'POOR', 'UNSERVICEABLE')),
    quantity          INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 0),
    purchase_id       INTEGER REFERENCES purchases(id),
    notes             TEXT NOT NULL DEFAULT '',
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assets_pool
    ON assets(base_id, equipment_type_id, status, created_at);

CREATE TABLE IF NOT EXISTS transfers (
    id                INTEGER PRIMARY KEY,
    ref               TEXT NOT NULL UNIQUE,
    from_base_id      INTEGER NOT NULL REFERENCES bases(id),
    to_base_id        INTEGER NOT NULL REFERENCES bases(id),
    equipment_type_id INTEGER NOT NULL REFERENCES equipment_types(id),
    total_quantity    INTEGER NOT NULL CHECK (total_quantity >= 1),
    status            TEXT NOT NULL DEFAULT 'INITIATED'
                      CHECK (status IN ('INITIATED', 'IN_TRANSIT', 'COMPLETED', 'CANCELLED')),
    initiated_by      INTEGER NOT NULL REFERENCES users(id),
    approved_by       INTEGER REFERENCES users(id),
    completed_by      INTEGER REFERENCES users(id),
    transfer_date     DATETIME NOT NULL,
    completion_date   DATETIME,
    transport_details TEXT NOT NULL DEFAULT '',
    notes             TEXT NOT NULL DEFAULT '',
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL,
    CHECK (from_base_id <> to_base_id)
);

CREATE TABLE IF NOT EXISTS transfer_lines (
    transfer_id INTEGER NOT NULL REFERENCES transfers(id) ON DELETE CASCADE,
    asset_id    INTEGER NOT NULL REFERENCES assets(id),
    quantity    INTEGER NOT NULL CHECK (quantity >= 1),
    PRIMARY KEY (transfer_id, asset_id)
);

CREATE TABLE IF NOT EXISTS assignments (
    id                   INTEGER PRIMARY KEY,
    ref                  TEXT NOT NULL UNIQUE,
    asset_id             INTEGER NOT NULL REFERENCES assets(id),
    assignee_id          INTEGER NOT NULL REFERENCES users(id),
    base_id              INTEGER NOT NULL REFERENCES bases(id),
    assignment_date      DATETIME NOT NULL,
    expected_return_date DATETIME,
    actual_return_date   DATETIME,
    status               TEXT NOT NULL DEFAULT 'ACTIVE'
                         CHECK (status IN ('ACTIVE', 'RETURNED', 'LOST', 'DAMAGED', 'EXPENDED')),
    assigned_by          INTEGER NOT NULL REFERENCES users(id),
    purpose              TEXT NOT NULL DEFAULT '',
    notes                TEXT NOT NULL DEFAULT '',
    created_at           DATETIME NOT NULL,
    updated_at           DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_active_asset
    ON assignments(asset_id) WHERE status = 'ACTIVE';

CREATE TABLE IF NOT EXISTS expenditures (
    id                INTEGER PRIMARY KEY,
    ref               TEXT NOT NULL UNIQUE,
    equipment_type_id INTEGER NOT NULL REFERENCES equipment_types(id),
    base_id           INTEGER NOT NULL REFERENCES bases(id),
    quantity          INTEGER NOT NULL CHECK (quantity >= 1),
    expenditure_date  DATETIME NOT NULL,
    reason            TEXT NOT NULL
                      CHECK (reason IN ('TRAINING', 'OPERATION', 'MAINTENANCE', 'DISPOSAL', 'OTHER')),
    status            TEXT NOT NULL DEFAULT 'PENDING'
                      CHECK (status IN ('PENDING', 'APPROVED', 'COMPLETED', 'CANCELLED')),
    authorized_by     INTEGER NOT NULL REFERENCES users(id),
    approved_by       INTEGER REFERENCES users(id),
    completed_by      INTEGER REFERENCES users(id),
    completed_date    DATETIME,
    operation_details TEXT NOT NULL DEFAULT '',
    notes             TEXT NOT NULL DEFAULT '',
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS expenditure_assets (
    expenditure_id INTEGER NOT NULL REFERENCES expenditures(id) ON DELETE CASCADE,
    asset_id       INTEGER NOT NULL REFERENCES assets(id),
    quantity       INTEGER NOT NULL CHECK (quantity >= 1),
    PRIMARY KEY (expenditure_id, asset_id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: dashboard windows filter workflow records by their dates.
	`CREATE INDEX IF NOT EXISTS idx_transfers_completion
	     ON transfers(status, completion_date)`,
	`CREATE INDEX IF NOT EXISTS idx_expenditures_completed
	     ON expenditures(status, completed_date)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_date
	     ON purchases(purchase_date)`,
	// Migration 2: allocation looks up open expenditures by asset.
	`CREATE INDEX IF NOT EXISTS idx_expenditure_assets_asset
	     ON expenditure_assets(asset_id)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist and
// applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
