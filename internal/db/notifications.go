package db

import (
	"database/sql"
	"fmt"

	"github.com/mariia-hub/hubsync/internal/models"
)

// InsertNotification records an accepted notification in history.
// An empty ID is assigned.
func (db *DB) InsertNotification(n *models.NotificationRecord) error {
	if n.ID == "" {
		n.ID = newID(notifIDPrefix)
	}
	if n.State == "" {
		n.State = models.NotificationCreated
	}
	read := 0
	if n.Read {
		read = 1
	}
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO notifications (id, type, title, message, priority, read, state, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, n.ID, string(n.Type), n.Title, n.Message, n.Priority, read, string(n.State), formatTime(n.CreatedAt))
		return err
	})
}

// SetNotificationState transitions a notification's lifecycle state.
// Terminal states stick: once read, dismissed or expired, a record
// ignores further transitions. Read state is monotonic: once set it
// is never cleared.
func (db *DB) SetNotificationState(id string, state models.NotificationState) error {
	read := 0
	if state == models.NotificationRead {
		read = 1
	}
	return db.withWriteLock(func() error {
		var current string
		err := db.conn.QueryRow(`SELECT state FROM notifications WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		if models.NotificationState(current).Terminal() {
			return nil
		}
		_, err = db.conn.Exec(`UPDATE notifications SET state = ?, read = MAX(read, ?) WHERE id = ?`,
			string(state), read, id)
		return err
	})
}

// ListRecentNotifications returns history entries, newest first.
func (db *DB) ListRecentNotifications(limit int) ([]models.NotificationRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, type, title, message, priority, read, state, created_at
		FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var n models.NotificationRecord
		var typ, state, createdAt string
		var read int
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.Message, &n.Priority, &read, &state, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = models.NotificationType(typ)
		n.State = models.NotificationState(state)
		n.Read = read != 0
		if ts, err := parseTimestamp(createdAt); err == nil {
			n.CreatedAt = ts
		}
		records = append(records, n)
	}
	return records, rows.Err()
}
