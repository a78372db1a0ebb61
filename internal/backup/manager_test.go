package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/models"
)

type memPrefs struct {
	p       models.Preferences
	loadErr error
	saveErr error
	saves   int
}

func (m *memPrefs) Load() (models.Preferences, error) { return m.p, m.loadErr }
func (m *memPrefs) Save(p models.Preferences) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.p = p
	m.saves++
	return nil
}

func newTestManager(t *testing.T, p *memPrefs) (*Manager, *db.DB) {
	t.Helper()
	store, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewManager(store, p, "dev-test", 0, nil), store
}

func TestCreateAndList(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.BackupVersion == "" {
		t.Fatalf("record incomplete: %+v", rec)
	}
	if rec.DeviceSource != "dev-test" {
		t.Errorf("device source: got %s", rec.DeviceSource)
	}
	if rec.SizeBytes == 0 {
		t.Error("size should reflect stored payload")
	}
	if got := rec.ExpiresAt.Sub(rec.CreatedAt); got != DefaultRetention {
		t.Errorf("retention: got %v", got)
	}

	list, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Fatalf("list: %+v", list)
	}
}

func TestRestore(t *testing.T) {
	saved := models.DefaultPreferences()
	saved.QuietHours.Enabled = true
	p := &memPrefs{p: saved}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// User changes preferences afterwards, then restores the snapshot.
	p.p.QuietHours.Enabled = false
	p.p.EnableNotifications = false

	restored, err := m.Restore(rec.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.QuietHours.Enabled || !restored.EnableNotifications {
		t.Errorf("restored: %+v", restored)
	}
	if !p.p.QuietHours.Enabled {
		t.Error("store should hold the restored preferences")
	}
}

func TestRestore_FailureLeavesPrefsUntouched(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, store := newTestManager(t, p)

	// A snapshot whose quiet hours no longer parse.
	bad := &models.BackupRecord{
		BackupVersion: "20260829-000000",
		CreatedAt:     time.Now().UTC(),
		DeviceSource:  "dev-test",
		ExpiresAt:     time.Now().UTC().Add(time.Hour),
	}
	payload, _ := json.Marshal(map[string]any{
		"enable_notifications": true,
		"quiet_hours":          map[string]any{"enabled": true, "start": "25:99", "end": "08:00"},
	})
	if err := store.InsertBackup(bad, payload); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := m.Restore(bad.ID); err == nil {
		t.Fatal("invalid snapshot should fail to restore")
	}
	if p.saves != 0 {
		t.Error("failed restore must not write preferences")
	}
}

func TestRestore_SoftDeletedRejected(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.SoftDelete(rec.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := m.Restore(rec.ID); !errors.Is(err, ErrNotRestorable) {
		t.Errorf("restore after delete: got %v, want ErrNotRestorable", err)
	}
	list, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("soft-deleted backup listed: %+v", list)
	}
}

func TestRestore_ExpiredRejected(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Jump past the retention window.
	m.now = func() time.Time { return time.Now().Add(DefaultRetention + time.Hour) }

	if _, err := m.Restore(rec.ID); !errors.Is(err, ErrNotRestorable) {
		t.Errorf("restore after expiry: got %v, want ErrNotRestorable", err)
	}
}

func TestExport(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Export still works after a soft delete.
	if err := m.SoftDelete(rec.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	var buf bytes.Buffer
	exported, err := m.Export(rec.ID, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.ID != rec.ID {
		t.Errorf("exported record: %+v", exported)
	}
	var snapshot models.Preferences
	if err := json.Unmarshal(buf.Bytes(), &snapshot); err != nil {
		t.Fatalf("export is not a preferences document: %v", err)
	}
	if !snapshot.EnableNotifications {
		t.Errorf("snapshot content: %+v", snapshot)
	}
}

func TestPurgeExpired(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, store := newTestManager(t, p)

	if _, err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	old := &models.BackupRecord{
		BackupVersion: "20250101-000000",
		CreatedAt:     time.Now().UTC().Add(-400 * 24 * time.Hour),
		DeviceSource:  "dev-test",
		ExpiresAt:     time.Now().UTC().Add(-35 * 24 * time.Hour),
	}
	if err := store.InsertBackup(old, []byte(`{}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := m.PurgeExpired()
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged: got %d, want 1", n)
	}
	count, err := store.CountAllBackups()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("remaining backups: got %d, want 1", count)
	}
}

func TestExportSealedAndImport(t *testing.T) {
	saved := models.DefaultPreferences()
	saved.QuietHours.Enabled = true
	p := &memPrefs{p: saved}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var buf bytes.Buffer
	if _, err := m.ExportSealed(rec.ID, "hunter2", &buf); err != nil {
		t.Fatalf("export sealed: %v", err)
	}
	var leaked models.Preferences
	if json.Unmarshal(buf.Bytes(), &leaked) == nil {
		t.Fatal("sealed export should not be readable as JSON")
	}

	imported, err := m.Import(buf.Bytes(), "hunter2")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.ID == rec.ID {
		t.Fatal("import should create a new record")
	}

	got, err := m.Restore(imported.ID)
	if err != nil {
		t.Fatalf("restore imported: %v", err)
	}
	if !got.QuietHours.Enabled {
		t.Error("imported snapshot lost quiet hours setting")
	}
}

func TestImport_WrongPassphrase(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var buf bytes.Buffer
	if _, err := m.ExportSealed(rec.ID, "right", &buf); err != nil {
		t.Fatalf("export sealed: %v", err)
	}

	if _, err := m.Import(buf.Bytes(), "wrong"); err == nil {
		t.Fatal("expected error importing with wrong passphrase")
	}
	if _, err := m.Import(buf.Bytes(), ""); err == nil {
		t.Fatal("expected error importing sealed export without passphrase")
	}
}

func TestImport_PlainExport(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, _ := newTestManager(t, p)

	rec, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var buf bytes.Buffer
	if _, err := m.Export(rec.ID, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, err := m.Import(buf.Bytes(), ""); err != nil {
		t.Fatalf("import plain export: %v", err)
	}
}

func TestImport_InvalidSnapshotRejected(t *testing.T) {
	p := &memPrefs{p: models.DefaultPreferences()}
	m, store := newTestManager(t, p)

	bad := []byte(`{"enable_notifications":true,"quiet_hours":{"enabled":true,"start":"25:99","end":"08:00"}}`)
	if _, err := m.Import(bad, ""); err == nil {
		t.Fatal("expected error importing invalid snapshot")
	}

	list, err := store.ListRestorableBackups(time.Now().UTC())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("invalid import should not be stored, got %d records", len(list))
	}
}
