// Package backup snapshots the synchronizable preference state into
// versioned, restorable records with a retention window.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mariia-hub/hubsync/internal/crypto"
	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/prefs"
)

// ErrNotRestorable is returned when restoring a backup that was
// soft-deleted or has passed its retention window.
var ErrNotRestorable = errors.New("backup: not restorable")

// DefaultRetention keeps backups for one year.
const DefaultRetention = 365 * 24 * time.Hour

// Manager creates and restores preference snapshots.
type Manager struct {
	store     *db.DB
	prefs     prefs.Store
	device    string
	retention time.Duration
	logger    *slog.Logger

	now func() time.Time
}

// NewManager wires a backup manager. device identifies which device
// produced each snapshot; retention <= 0 falls back to one year.
func NewManager(store *db.DB, prefStore prefs.Store, device string, retention time.Duration, logger *slog.Logger) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		prefs:     prefStore,
		device:    device,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Create snapshots the current preferences and returns the stored record.
func (m *Manager) Create() (models.BackupRecord, error) {
	p, err := m.prefs.Load()
	if err != nil {
		return models.BackupRecord{}, fmt.Errorf("loading preferences: %w", err)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return models.BackupRecord{}, fmt.Errorf("encoding snapshot: %w", err)
	}

	now := m.now().UTC()
	rec := models.BackupRecord{
		BackupVersion: now.Format("20060102-150405"),
		CreatedAt:     now,
		DeviceSource:  m.device,
		IsRestorable:  true,
		ExpiresAt:     now.Add(m.retention),
	}
	if err := m.store.InsertBackup(&rec, payload); err != nil {
		return models.BackupRecord{}, fmt.Errorf("storing backup: %w", err)
	}
	m.logger.Info("backup created", "id", rec.ID, "version", rec.BackupVersion, "bytes", rec.SizeBytes)
	return rec, nil
}

// List returns restorable backups, newest first. Soft-deleted and
// expired records are excluded.
func (m *Manager) List() ([]models.BackupRecord, error) {
	return m.store.ListRestorableBackups(m.now().UTC())
}

// Restore replaces the active preferences with a snapshot. The payload
// is decoded and validated before anything is written, so a bad or
// unrestorable backup leaves the current preferences untouched.
func (m *Manager) Restore(id string) (models.Preferences, error) {
	rec, err := m.restorableRecord(id)
	if err != nil {
		return models.Preferences{}, err
	}

	payload, err := m.store.GetBackupPayload(rec.ID)
	if err != nil {
		return models.Preferences{}, err
	}
	var p models.Preferences
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.Preferences{}, fmt.Errorf("decoding backup %s: %w", id, err)
	}
	if err := prefs.Validate(p); err != nil {
		return models.Preferences{}, fmt.Errorf("backup %s holds invalid preferences: %w", id, err)
	}

	if err := m.prefs.Save(p); err != nil {
		return models.Preferences{}, fmt.Errorf("applying backup %s: %w", id, err)
	}
	m.logger.Info("backup restored", "id", rec.ID, "version", rec.BackupVersion)
	return p, nil
}

// SoftDelete removes a backup from the restorable set. The stored
// bytes are kept until retention expires.
func (m *Manager) SoftDelete(id string) error {
	if err := m.store.SoftDeleteBackup(id); err != nil {
		return err
	}
	m.logger.Info("backup deleted", "id", id)
	return nil
}

// Export writes a backup's raw snapshot to w. Soft-deleted backups can
// still be exported while their bytes are retained.
func (m *Manager) Export(id string, w io.Writer) (models.BackupRecord, error) {
	rec, err := m.store.GetBackup(id)
	if err != nil {
		return models.BackupRecord{}, err
	}
	if rec == nil {
		return models.BackupRecord{}, fmt.Errorf("backup %s not found", id)
	}
	payload, err := m.store.GetBackupPayload(id)
	if err != nil {
		return models.BackupRecord{}, err
	}
	if _, err := w.Write(payload); err != nil {
		return models.BackupRecord{}, fmt.Errorf("writing export: %w", err)
	}
	return *rec, nil
}

// ExportSealed writes a backup's snapshot to w encrypted under a
// passphrase. The resulting file can only be read back through Import
// with the same passphrase.
func (m *Manager) ExportSealed(id, passphrase string, w io.Writer) (models.BackupRecord, error) {
	rec, err := m.store.GetBackup(id)
	if err != nil {
		return models.BackupRecord{}, err
	}
	if rec == nil {
		return models.BackupRecord{}, fmt.Errorf("backup %s not found", id)
	}
	payload, err := m.store.GetBackupPayload(id)
	if err != nil {
		return models.BackupRecord{}, err
	}
	sealed, err := crypto.Seal(passphrase, payload)
	if err != nil {
		return models.BackupRecord{}, fmt.Errorf("sealing export: %w", err)
	}
	if _, err := w.Write(sealed); err != nil {
		return models.BackupRecord{}, fmt.Errorf("writing export: %w", err)
	}
	return *rec, nil
}

// Import stores an exported snapshot as a new backup record. Sealed
// exports need the passphrase they were sealed with; plain exports
// ignore it. The snapshot is validated before anything is stored.
func (m *Manager) Import(data []byte, passphrase string) (models.BackupRecord, error) {
	payload := data
	if crypto.IsSealed(data) {
		if passphrase == "" {
			return models.BackupRecord{}, errors.New("backup: sealed export requires a passphrase")
		}
		opened, err := crypto.Open(passphrase, data)
		if err != nil {
			return models.BackupRecord{}, fmt.Errorf("opening sealed export: %w", err)
		}
		payload = opened
	}

	var p models.Preferences
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.BackupRecord{}, fmt.Errorf("decoding import: %w", err)
	}
	if err := prefs.Validate(p); err != nil {
		return models.BackupRecord{}, fmt.Errorf("import holds invalid preferences: %w", err)
	}

	now := m.now().UTC()
	rec := models.BackupRecord{
		BackupVersion: now.Format("20060102-150405"),
		CreatedAt:     now,
		DeviceSource:  m.device,
		IsRestorable:  true,
		ExpiresAt:     now.Add(m.retention),
	}
	if err := m.store.InsertBackup(&rec, payload); err != nil {
		return models.BackupRecord{}, fmt.Errorf("storing import: %w", err)
	}
	m.logger.Info("backup imported", "id", rec.ID, "version", rec.BackupVersion, "bytes", rec.SizeBytes)
	return rec, nil
}

// PurgeExpired drops backups past their retention window for good.
func (m *Manager) PurgeExpired() (int64, error) {
	n, err := m.store.PurgeExpiredBackups(m.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("expired backups purged", "count", n)
	}
	return n, nil
}

func (m *Manager) restorableRecord(id string) (*models.BackupRecord, error) {
	rec, err := m.store.GetBackup(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("backup %s not found", id)
	}
	if !rec.IsRestorable || !rec.ExpiresAt.After(m.now().UTC()) {
		return nil, fmt.Errorf("backup %s: %w", id, ErrNotRestorable)
	}
	return rec, nil
}
