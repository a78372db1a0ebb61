package db

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mariia-hub/hubsync/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	database, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestEnqueueOperation_Coalescing(t *testing.T) {
	database := setupDB(t)

	first, err := database.EnqueueOperation("preferences", "user-1", json.RawMessage(`{"name":"Anna"}`), 3)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// Interleave a different entity to pin queue ordering.
	if _, err := database.EnqueueOperation("bookings", "b-1", json.RawMessage(`{"status":"confirmed"}`), 1); err != nil {
		t.Fatalf("enqueue other: %v", err)
	}
	second, err := database.EnqueueOperation("preferences", "user-1", json.RawMessage(`{"name":"Annika"}`), 4)
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("coalesce should keep original op id: %q vs %q", second.ID, first.ID)
	}

	ops, err := database.ListPendingOperations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("queue length: got %d, want 2", len(ops))
	}
	// Original position preserved: preferences op enqueued first stays first.
	if ops[0].EntityType != "preferences" {
		t.Errorf("queue order: got %s first", ops[0].EntityType)
	}
	if string(ops[0].Payload) != `{"name":"Annika"}` {
		t.Errorf("latest payload should win: got %s", ops[0].Payload)
	}
	if ops[0].BaseRevision != 4 {
		t.Errorf("base revision: got %d, want 4", ops[0].BaseRevision)
	}
}

func TestEnqueueOperation_CoalesceResetsAttempts(t *testing.T) {
	database := setupDB(t)

	op, err := database.EnqueueOperation("preferences", "user-1", json.RawMessage(`{}`), 0)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := database.IncrementAttempt(op.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}

	coalesced, err := database.EnqueueOperation("preferences", "user-1", json.RawMessage(`{"a":1}`), 0)
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if coalesced.AttemptCount != 0 {
		t.Errorf("attempt count after coalesce: got %d, want 0", coalesced.AttemptCount)
	}
}

func TestIncrementAttempt(t *testing.T) {
	database := setupDB(t)

	op, err := database.EnqueueOperation("bookings", "b-1", json.RawMessage(`{}`), 0)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := database.IncrementAttempt(op.ID)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Errorf("attempt count: got %d, want %d", got, want)
		}
	}
}

func TestReplaceConflict_OnePerEntity(t *testing.T) {
	database := setupDB(t)

	base := models.ConflictRecord{
		EntityType: "preferences",
		EntityID:   "user-1",
		LocalData:  json.RawMessage(`{"name":"Anna"}`),
		RemoteData: json.RawMessage(`{"name":"Anne"}`),
		DetectedAt: time.Now().UTC(),
	}
	if err := database.ReplaceConflict(base); err != nil {
		t.Fatalf("replace: %v", err)
	}

	newer := base
	newer.RemoteData = json.RawMessage(`{"name":"Annette"}`)
	newer.RemoteRevision = 5
	if err := database.ReplaceConflict(newer); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	conflicts, err := database.ListConflicts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("conflict count: got %d, want 1", len(conflicts))
	}
	if string(conflicts[0].RemoteData) != `{"name":"Annette"}` {
		t.Errorf("second update should replace record: got %s", conflicts[0].RemoteData)
	}

	if err := database.DeleteConflict("preferences", "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, err := database.CountConflicts()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("conflicts after delete: got %d", count)
	}
}

func TestEntityState_RoundTrip(t *testing.T) {
	database := setupDB(t)

	rev, err := database.AckedRevision("preferences", "user-1")
	if err != nil {
		t.Fatalf("acked revision: %v", err)
	}
	if rev != 0 {
		t.Errorf("unseen entity revision: got %d, want 0", rev)
	}

	if err := database.SaveEntityState("preferences", "user-1", json.RawMessage(`{"name":"Anne"}`), 4); err != nil {
		t.Fatalf("save: %v", err)
	}
	state, err := database.GetEntityState("preferences", "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state == nil || state.AckedRevision != 4 {
		t.Fatalf("state: got %+v", state)
	}
	if string(state.Data) != `{"name":"Anne"}` {
		t.Errorf("data: got %s", state.Data)
	}
}

func TestNotifications_ReadMonotonic(t *testing.T) {
	database := setupDB(t)

	n := &models.NotificationRecord{
		Type:      models.NotifyBookingReminder,
		Title:     "Upcoming appointment",
		Priority:  5,
		State:     models.NotificationDisplayed,
		CreatedAt: time.Now().UTC(),
	}
	if err := database.InsertNotification(n); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected assigned id")
	}

	if err := database.SetNotificationState(n.ID, models.NotificationRead); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// A later expiry transition must not clear the read flag.
	if err := database.SetNotificationState(n.ID, models.NotificationExpired); err != nil {
		t.Fatalf("expire: %v", err)
	}

	records, err := database.ListRecentNotifications(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history length: got %d", len(records))
	}
	if !records[0].Read {
		t.Error("read flag should be monotonic")
	}
	if records[0].State != models.NotificationExpired {
		t.Errorf("state: got %s", records[0].State)
	}
}

func TestBackups_SoftDeleteAndExpiry(t *testing.T) {
	database := setupDB(t)
	now := time.Now().UTC()

	live := &models.BackupRecord{
		BackupVersion: "v20260829-1",
		DeviceSource:  "dev-a",
		CreatedAt:     now,
		ExpiresAt:     now.Add(365 * 24 * time.Hour),
	}
	if err := database.InsertBackup(live, []byte(`{"enable_notifications":true}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	expired := &models.BackupRecord{
		BackupVersion: "v20250101-1",
		DeviceSource:  "dev-a",
		CreatedAt:     now.Add(-400 * 24 * time.Hour),
		ExpiresAt:     now.Add(-35 * 24 * time.Hour),
	}
	if err := database.InsertBackup(expired, []byte(`{}`)); err != nil {
		t.Fatalf("insert expired: %v", err)
	}

	list, err := database.ListRestorableBackups(now)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != live.ID {
		t.Fatalf("expected only the live backup, got %d records", len(list))
	}

	if err := database.SoftDeleteBackup(live.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	list, err = database.ListRestorableBackups(now)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("soft-deleted backup still listed")
	}

	// Unfiltered count keeps the audit history intact.
	count, err := database.CountAllBackups()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("unfiltered count: got %d, want 2", count)
	}

	payload, err := database.GetBackupPayload(live.ID)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if string(payload) != `{"enable_notifications":true}` {
		t.Errorf("payload survived soft delete: got %s", payload)
	}
}

func TestSyncState(t *testing.T) {
	database := setupDB(t)

	last, err := database.LastSyncAt()
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil before first sync, got %v", last)
	}

	at := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	if err := database.TouchLastSync(at); err != nil {
		t.Fatalf("touch: %v", err)
	}

	last, err = database.LastSyncAt()
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if last == nil || !last.Equal(at) {
		t.Errorf("last sync: got %v, want %v", last, at)
	}

	cycles, err := database.TotalSyncCycles()
	if err != nil {
		t.Fatalf("cycles: %v", err)
	}
	if cycles != 1 {
		t.Errorf("cycles: got %d, want 1", cycles)
	}
}

// The state file is opened by other tooling with the cgo sqlite driver,
// so what the pure-Go driver writes has to read back cleanly there.
func TestStateFileReadableAcrossDrivers(t *testing.T) {
	dir := t.TempDir()
	database, err := Initialize(dir)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := database.EnqueueOperation("bookings", "b-1", json.RawMessage(`{"status":"confirmed"}`), 2); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := sql.Open("sqlite3", filepath.Join(dir, dbFile))
	if err != nil {
		t.Fatalf("open with cgo driver: %v", err)
	}
	defer raw.Close()

	var mode string
	if err := raw.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var count int
	if err := raw.QueryRow(`SELECT COUNT(*) FROM pending_operations`).Scan(&count); err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if count != 1 {
		t.Errorf("pending_operations = %d, want 1", count)
	}

	var entityType, payload string
	row := raw.QueryRow(`SELECT entity_type, payload FROM pending_operations`)
	if err := row.Scan(&entityType, &payload); err != nil {
		t.Fatalf("scan pending: %v", err)
	}
	if entityType != "bookings" {
		t.Errorf("entity_type = %q", entityType)
	}
	if payload != `{"status":"confirmed"}` {
		t.Errorf("payload = %q", payload)
	}
}
