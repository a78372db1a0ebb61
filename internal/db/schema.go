package db

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version
const SchemaVersion = 1

const schema = `
-- Outbound queue: one row per (entity_type, entity_id); later enqueues
-- for the same entity coalesce into the existing row.
CREATE TABLE IF NOT EXISTS pending_operations (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    payload JSON NOT NULL,
    base_revision INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    attempt_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE(entity_type, entity_id)
);

-- Last applied state and acknowledged revision per entity.
CREATE TABLE IF NOT EXISTS entity_state (
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    data JSON NOT NULL,
    acked_revision INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (entity_type, entity_id)
);

-- Open conflicts. The primary key enforces at most one record per entity;
-- a newer conflicting update replaces the row.
CREATE TABLE IF NOT EXISTS sync_conflicts (
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    local_data JSON NOT NULL,
    remote_data JSON NOT NULL,
    remote_revision INTEGER NOT NULL DEFAULT 0,
    detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    manual_only INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (entity_type, entity_id)
);

-- Single-row sync bookkeeping.
CREATE TABLE IF NOT EXISTS sync_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    last_sync_at DATETIME,
    total_cycles INTEGER NOT NULL DEFAULT 0
);

-- Notification history (accepted events and their lifecycle outcome).
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT DEFAULT '',
    priority INTEGER NOT NULL DEFAULT 0,
    read INTEGER NOT NULL DEFAULT 0,
    state TEXT NOT NULL DEFAULT 'created',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

-- Preference snapshots. Soft delete flips is_restorable; bytes are kept
-- for audit until the expiry horizon.
CREATE TABLE IF NOT EXISTS backups (
    id TEXT PRIMARY KEY,
    backup_version TEXT NOT NULL,
    device_source TEXT NOT NULL DEFAULT '',
    payload BLOB NOT NULL,
    size_bytes INTEGER NOT NULL,
    is_restorable INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backups_created ON backups(created_at);

-- Schema metadata
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// RunMigrations applies the schema and any version-gated migrations.
func (db *DB) RunMigrations() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Seed the single sync_state row
	if _, err := db.conn.Exec(`INSERT OR IGNORE INTO sync_state (id) VALUES (1)`); err != nil {
		return fmt.Errorf("seed sync state: %w", err)
	}

	version, err := db.GetSchemaVersion()
	if err != nil {
		return err
	}
	if version < SchemaVersion {
		if err := db.setSchemaVersion(SchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// GetSchemaVersion returns the current schema version from the database
func (db *DB) GetSchemaVersion() (int, error) {
	var version string
	err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, nil
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

func (db *DB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}
