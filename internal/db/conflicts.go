package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mariia-hub/hubsync/internal/models"
)

// ReplaceConflict records a conflict, replacing any existing record for the
// same entity. This enforces the one-conflict-per-entity invariant.
func (db *DB) ReplaceConflict(c models.ConflictRecord) error {
	manualOnly := 0
	if c.ManualOnly {
		manualOnly = 1
	}
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT OR REPLACE INTO sync_conflicts
				(entity_type, entity_id, local_data, remote_data, remote_revision, detected_at, manual_only)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.EntityType, c.EntityID, string(c.LocalData), string(c.RemoteData),
			c.RemoteRevision, formatTime(c.DetectedAt), manualOnly)
		return err
	})
}

const conflictColumns = `entity_type, entity_id, local_data, remote_data, remote_revision, detected_at, manual_only`

func scanConflict(scan func(...any) error) (models.ConflictRecord, error) {
	var c models.ConflictRecord
	var local, remote, detectedAt string
	var manualOnly int
	if err := scan(&c.EntityType, &c.EntityID, &local, &remote, &c.RemoteRevision, &detectedAt, &manualOnly); err != nil {
		return c, err
	}
	c.LocalData = json.RawMessage(local)
	c.RemoteData = json.RawMessage(remote)
	c.ManualOnly = manualOnly != 0
	if ts, err := parseTimestamp(detectedAt); err == nil {
		c.DetectedAt = ts
	}
	return c, nil
}

// ListConflicts returns open conflicts ordered by detection time (oldest first).
func (db *DB) ListConflicts() ([]models.ConflictRecord, error) {
	rows, err := db.conn.Query(`SELECT ` + conflictColumns + ` FROM sync_conflicts ORDER BY detected_at ASC, entity_type, entity_id`)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []models.ConflictRecord
	for rows.Next() {
		c, err := scanConflict(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// GetConflict returns the open conflict for an entity, or nil.
func (db *DB) GetConflict(entityType, entityID string) (*models.ConflictRecord, error) {
	row := db.conn.QueryRow(`SELECT `+conflictColumns+` FROM sync_conflicts WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID)
	c, err := scanConflict(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict %s/%s: %w", entityType, entityID, err)
	}
	return &c, nil
}

// DeleteConflict removes a resolved conflict record.
func (db *DB) DeleteConflict(entityType, entityID string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`DELETE FROM sync_conflicts WHERE entity_type = ? AND entity_id = ?`,
			entityType, entityID)
		return err
	})
}

// CountConflicts returns the number of open conflicts.
func (db *DB) CountConflicts() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM sync_conflicts`).Scan(&count)
	return count, err
}
