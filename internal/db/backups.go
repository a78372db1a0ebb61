package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mariia-hub/hubsync/internal/models"
)

// InsertBackup stores a snapshot payload. An empty ID is assigned.
func (db *DB) InsertBackup(rec *models.BackupRecord, payload []byte) error {
	if rec.ID == "" {
		rec.ID = newID(backupIDPrefix)
	}
	rec.SizeBytes = int64(len(payload))
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO backups (id, backup_version, device_source, payload, size_bytes, is_restorable, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		`, rec.ID, rec.BackupVersion, rec.DeviceSource, payload, rec.SizeBytes,
			formatTime(rec.CreatedAt), formatTime(rec.ExpiresAt))
		return err
	})
}

const backupColumns = `id, backup_version, device_source, size_bytes, is_restorable, created_at, expires_at`

func scanBackup(scan func(...any) error) (models.BackupRecord, error) {
	var rec models.BackupRecord
	var restorable int
	var createdAt, expiresAt string
	if err := scan(&rec.ID, &rec.BackupVersion, &rec.DeviceSource, &rec.SizeBytes, &restorable, &createdAt, &expiresAt); err != nil {
		return rec, err
	}
	rec.IsRestorable = restorable != 0
	if ts, err := parseTimestamp(createdAt); err == nil {
		rec.CreatedAt = ts
	}
	if ts, err := parseTimestamp(expiresAt); err == nil {
		rec.ExpiresAt = ts
	}
	return rec, nil
}

// GetBackup returns a backup record (soft-deleted included), or nil.
func (db *DB) GetBackup(id string) (*models.BackupRecord, error) {
	row := db.conn.QueryRow(`SELECT `+backupColumns+` FROM backups WHERE id = ?`, id)
	rec, err := scanBackup(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return &rec, nil
}

// GetBackupPayload returns the stored snapshot bytes.
func (db *DB) GetBackupPayload(id string) ([]byte, error) {
	var payload []byte
	err := db.conn.QueryRow(`SELECT payload FROM backups WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup payload %s: %w", id, err)
	}
	return payload, nil
}

// ListRestorableBackups returns restorable, unexpired backups newest first.
func (db *DB) ListRestorableBackups(now time.Time) ([]models.BackupRecord, error) {
	rows, err := db.conn.Query(`
		SELECT `+backupColumns+` FROM backups
		WHERE is_restorable = 1 AND expires_at > ?
		ORDER BY created_at DESC, id DESC
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	var records []models.BackupRecord
	for rows.Next() {
		rec, err := scanBackup(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SoftDeleteBackup marks a backup unrestorable without purging its bytes.
func (db *DB) SoftDeleteBackup(id string) error {
	return db.withWriteLock(func() error {
		res, err := db.conn.Exec(`UPDATE backups SET is_restorable = 0 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("backup %s not found", id)
		}
		return nil
	})
}

// CountAllBackups counts every stored record, soft-deleted included.
func (db *DB) CountAllBackups() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM backups`).Scan(&count)
	return count, err
}

// PurgeExpiredBackups hard-deletes records past their expiry horizon.
// Returns the number of rows removed.
func (db *DB) PurgeExpiredBackups(now time.Time) (int64, error) {
	var affected int64
	err := db.withWriteLock(func() error {
		res, err := db.conn.Exec(`DELETE FROM backups WHERE expires_at <= ?`, formatTime(now))
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}
