package db

import (
	"database/sql"
	"time"
)

// LastSyncAt returns the time of the last completed sync cycle, or nil.
func (db *DB) LastSyncAt() (*time.Time, error) {
	var last sql.NullString
	if err := db.conn.QueryRow(`SELECT last_sync_at FROM sync_state WHERE id = 1`).Scan(&last); err != nil {
		return nil, err
	}
	if !last.Valid || last.String == "" {
		return nil, nil
	}
	ts, err := parseTimestamp(last.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// TouchLastSync records a completed sync cycle.
func (db *DB) TouchLastSync(at time.Time) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`UPDATE sync_state SET last_sync_at = ?, total_cycles = total_cycles + 1 WHERE id = 1`,
			formatTime(at))
		return err
	})
}

// TotalSyncCycles returns the number of completed sync cycles.
func (db *DB) TotalSyncCycles() (int64, error) {
	var cycles int64
	err := db.conn.QueryRow(`SELECT total_cycles FROM sync_state WHERE id = 1`).Scan(&cycles)
	return cycles, err
}
