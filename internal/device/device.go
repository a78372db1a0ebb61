// Package device owns the stable per-install identity of this client.
// Every other component reads the device through the registry; nothing
// mutates it except Rename.
package device

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mariia-hub/hubsync/internal/config"
	"github.com/mariia-hub/hubsync/internal/models"
)

const deviceFile = "device.json"

// Load reads the device identity, creating it on first run.
func Load() (*models.Device, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, deviceFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return create(path)
		}
		return nil, fmt.Errorf("read device file: %w", err)
	}

	var dev models.Device
	if err := json.Unmarshal(data, &dev); err != nil {
		return nil, fmt.Errorf("parse device file: %w", err)
	}
	if dev.ID == "" {
		return create(path)
	}
	return &dev, nil
}

// Rename updates the device display name. The ID and platform never change.
func Rename(name string) (*models.Device, error) {
	dev, err := Load()
	if err != nil {
		return nil, err
	}
	dev.Name = name
	if err := save(dev); err != nil {
		return nil, err
	}
	return dev, nil
}

// create generates a fresh identity and persists it.
func create(path string) (*models.Device, error) {
	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("generate device id: %w", err)
	}
	dev := &models.Device{
		ID:        id,
		Platform:  detectPlatform(),
		Name:      defaultName(),
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(dev, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write device file: %w", err)
	}
	return dev, nil
}

func save(dev *models.Device) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(dev, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, deviceFile), data, 0600)
}

// generateID creates a new random device ID (16 bytes hex).
func generateID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func detectPlatform() models.Platform {
	switch runtime.GOOS {
	case "ios":
		return models.PlatformIOS
	case "android":
		return models.PlatformAndroid
	case "js", "wasip1":
		return models.PlatformWeb
	default:
		return models.PlatformDesktop
	}
}

func defaultName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
