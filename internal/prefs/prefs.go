// Package prefs stores the synchronizable notification preferences.
// Readers must not cache beyond a single check: the dispatcher re-reads
// preferences on every shouldShow decision.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/models"
)

const prefsFile = "preferences.json"

// Store reads and writes preference state. The notification dispatcher
// reads through this interface on every check.
type Store interface {
	Load() (models.Preferences, error)
	Save(models.Preferences) error
}

// FileStore keeps preferences as JSON under the hubsync config dir.
type FileStore struct {
	dir string // empty = resolve via config.Dir on each call
}

// NewFileStore returns the default file-backed preference store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// NewFileStoreAt returns a store rooted at an explicit directory.
func NewFileStoreAt(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path() (string, error) {
	dir := s.dir
	if dir == "" {
		var err error
		dir, err = config.Dir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, prefsFile), nil
}

// Load reads preferences from disk, returning defaults when none exist.
func (s *FileStore) Load() (models.Preferences, error) {
	path, err := s.path()
	if err != nil {
		return models.Preferences{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.DefaultPreferences(), nil
		}
		return models.Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	var p models.Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Preferences{}, fmt.Errorf("parse preferences: %w", err)
	}
	return p, nil
}

// Save writes preferences to disk using atomic write (temp file + rename).
func (s *FileStore) Save(p models.Preferences) error {
	path, err := s.path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "preferences-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// ParseClock converts an "HH:MM" string to minutes-of-day (0..1439).
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return hh*60 + mm, nil
}

// Validate checks a preference payload before it is saved or restored.
func Validate(p models.Preferences) error {
	if !p.QuietHours.Enabled {
		return nil
	}
	if _, err := ParseClock(p.QuietHours.Start); err != nil {
		return fmt.Errorf("quiet hours start: %w", err)
	}
	if _, err := ParseClock(p.QuietHours.End); err != nil {
		return fmt.Errorf("quiet hours end: %w", err)
	}
	return nil
}
