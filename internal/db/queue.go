package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mariia-hub/hubsync/internal/models"
)

// EnqueueOperation inserts a pending operation, coalescing with any queued
// operation for the same (entityType, entityID): the newest payload and base
// revision win, the original queue position and ID are kept, and the retry
// counter resets.
func (db *DB) EnqueueOperation(entityType, entityID string, payload json.RawMessage, baseRevision int64) (models.PendingOperation, error) {
	op := models.PendingOperation{
		ID:           newID(opIDPrefix),
		EntityType:   entityType,
		EntityID:     entityID,
		Payload:      payload,
		BaseRevision: baseRevision,
	}

	err := db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO pending_operations (id, entity_type, entity_id, payload, base_revision)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(entity_type, entity_id) DO UPDATE SET
				payload = excluded.payload,
				base_revision = excluded.base_revision,
				attempt_count = 0
		`, op.ID, entityType, entityID, string(payload), baseRevision)
		return err
	})
	if err != nil {
		return models.PendingOperation{}, fmt.Errorf("enqueue %s/%s: %w", entityType, entityID, err)
	}

	// On coalesce the original row (and its ID) survived; read it back.
	stored, err := db.GetPendingOperation(entityType, entityID)
	if err != nil {
		return models.PendingOperation{}, err
	}
	if stored == nil {
		return models.PendingOperation{}, fmt.Errorf("enqueue %s/%s: row vanished", entityType, entityID)
	}
	return *stored, nil
}

const pendingColumns = `id, entity_type, entity_id, payload, base_revision, created_at, attempt_count`

func scanPendingOperation(scan func(...any) error) (models.PendingOperation, error) {
	var op models.PendingOperation
	var payload, createdAt string
	if err := scan(&op.ID, &op.EntityType, &op.EntityID, &payload, &op.BaseRevision, &createdAt, &op.AttemptCount); err != nil {
		return op, err
	}
	op.Payload = json.RawMessage(payload)
	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return op, err
	}
	op.CreatedAt = ts
	return op, nil
}

// ListPendingOperations returns the queue in enqueue order (oldest first).
func (db *DB) ListPendingOperations() ([]models.PendingOperation, error) {
	rows, err := db.conn.Query(`SELECT ` + pendingColumns + ` FROM pending_operations ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending operations: %w", err)
	}
	defer rows.Close()

	var ops []models.PendingOperation
	for rows.Next() {
		op, err := scanPendingOperation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan pending operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// GetPendingOperation returns the queued operation for an entity, or nil.
func (db *DB) GetPendingOperation(entityType, entityID string) (*models.PendingOperation, error) {
	row := db.conn.QueryRow(`SELECT `+pendingColumns+` FROM pending_operations WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID)
	op, err := scanPendingOperation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending %s/%s: %w", entityType, entityID, err)
	}
	return &op, nil
}

// DeletePendingOperation removes an operation by ID.
func (db *DB) DeletePendingOperation(id string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`DELETE FROM pending_operations WHERE id = ?`, id)
		return err
	})
}

// DeletePendingForEntity discards the queued operation for an entity, if any.
// Used when a conflict is resolved with use_remote.
func (db *DB) DeletePendingForEntity(entityType, entityID string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`DELETE FROM pending_operations WHERE entity_type = ? AND entity_id = ?`,
			entityType, entityID)
		return err
	})
}

// RebasePendingOperation moves a queued operation onto a new base revision
// (after its underlying remote state advanced without conflict).
func (db *DB) RebasePendingOperation(entityType, entityID string, baseRevision int64) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`UPDATE pending_operations SET base_revision = ? WHERE entity_type = ? AND entity_id = ?`,
			baseRevision, entityType, entityID)
		return err
	})
}

// IncrementAttempt bumps the retry counter and returns the new count.
func (db *DB) IncrementAttempt(id string) (int, error) {
	var count int
	err := db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`UPDATE pending_operations SET attempt_count = attempt_count + 1 WHERE id = ?`, id); err != nil {
			return err
		}
		return db.conn.QueryRow(`SELECT attempt_count FROM pending_operations WHERE id = ?`, id).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("increment attempt %s: %w", id, err)
	}
	return count, nil
}

// CountPendingOperations returns the number of queued operations.
func (db *DB) CountPendingOperations() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM pending_operations`).Scan(&count)
	return count, err
}
