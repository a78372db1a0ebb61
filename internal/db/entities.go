package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EntityState is the last applied state for one entity, with the revision
// both sides last agreed on.
type EntityState struct {
	EntityType    string
	EntityID      string
	Data          json.RawMessage
	AckedRevision int64
	UpdatedAt     time.Time
}

// SaveEntityState upserts the applied state and acknowledged revision.
func (db *DB) SaveEntityState(entityType, entityID string, data json.RawMessage, ackedRevision int64) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO entity_state (entity_type, entity_id, data, acked_revision, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(entity_type, entity_id) DO UPDATE SET
				data = excluded.data,
				acked_revision = excluded.acked_revision,
				updated_at = excluded.updated_at
		`, entityType, entityID, string(data), ackedRevision, formatTime(time.Now()))
		return err
	})
}

// GetEntityState returns the applied state for an entity, or nil.
func (db *DB) GetEntityState(entityType, entityID string) (*EntityState, error) {
	var s EntityState
	var data, updatedAt string
	err := db.conn.QueryRow(`
		SELECT entity_type, entity_id, data, acked_revision, updated_at
		FROM entity_state WHERE entity_type = ? AND entity_id = ?
	`, entityType, entityID).Scan(&s.EntityType, &s.EntityID, &data, &s.AckedRevision, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity state %s/%s: %w", entityType, entityID, err)
	}
	s.Data = json.RawMessage(data)
	if ts, err := parseTimestamp(updatedAt); err == nil {
		s.UpdatedAt = ts
	}
	return &s, nil
}

// AckedRevision returns the last acknowledged revision for an entity
// (0 when the entity has never been synced).
func (db *DB) AckedRevision(entityType, entityID string) (int64, error) {
	state, err := db.GetEntityState(entityType, entityID)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, nil
	}
	return state.AckedRevision, nil
}
