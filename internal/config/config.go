package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// RetryConfig holds flush retry settings.
type RetryConfig struct {
	BaseDelay   string `json:"base_delay,omitempty"`   // duration string, default "1s"
	MaxDelay    string `json:"max_delay,omitempty"`    // duration string, default "30s"
	MaxAttempts *int   `json:"max_attempts,omitempty"` // nil = default 5
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL      string      `json:"url"`
	Interval string      `json:"interval,omitempty"` // duration string, default "30s"
	Retry    RetryConfig `json:"retry"`
}

// NotifyConfig holds notification dispatcher settings.
type NotifyConfig struct {
	MaxVisible *int   `json:"max_visible,omitempty"` // nil = default 5
	DisplayFor string `json:"display_for,omitempty"` // duration string, default "5s"
}

// BackupConfig holds backup retention settings.
type BackupConfig struct {
	RetentionDays *int `json:"retention_days,omitempty"` // nil = default 365
}

// WebhookConfig holds sync event webhook settings.
type WebhookConfig struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

// Config is the global hubsync config stored at ~/.config/hubsync/config.json.
type Config struct {
	Sync    SyncConfig     `json:"sync"`
	Notify  NotifyConfig   `json:"notify"`
	Backup  BackupConfig   `json:"backup"`
	Webhook *WebhookConfig `json:"webhook,omitempty"`
}

const defaultServerURL = "https://api.mariia-hub.com"

// Dir returns ~/.config/hubsync, creating it if necessary.
// HUBSYNC_CONFIG_DIR overrides the location (used heavily by tests).
func Dir() (string, error) {
	if v := os.Getenv("HUBSYNC_CONFIG_DIR"); v != "" {
		if err := os.MkdirAll(v, 0755); err != nil {
			return "", fmt.Errorf("create config dir: %w", err)
		}
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "hubsync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config from ~/.config/hubsync/config.json.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config to ~/.config/hubsync/config.json.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// GetServerURL returns the hub sync server URL.
// Priority: HUBSYNC_URL env > config.json > default.
func GetServerURL() string {
	if v := os.Getenv("HUBSYNC_URL"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// GetAPIKey returns the API key.
// Priority: HUBSYNC_API_KEY env > config dir api_key file.
func GetAPIKey() string {
	if v := os.Getenv("HUBSYNC_API_KEY"); v != "" {
		return v
	}
	dir, err := Dir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, "api_key"))
	if err != nil {
		return ""
	}
	return string(data)
}

// IsAuthenticated returns true if an API key is available.
func IsAuthenticated() bool {
	return GetAPIKey() != ""
}

func durationSetting(envKey, fileVal string, def time.Duration) time.Duration {
	if v := os.Getenv(envKey); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if fileVal != "" {
		if d, err := time.ParseDuration(fileVal); err == nil {
			return d
		}
	}
	return def
}

func intSetting(envKey string, fileVal *int, def int) int {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	if fileVal != nil && *fileVal >= 0 {
		return *fileVal
	}
	return def
}

// GetSyncInterval returns the periodic sync interval for the run agent.
// Priority: HUBSYNC_SYNC_INTERVAL env > config.json sync.interval > 30s
func GetSyncInterval() time.Duration {
	cfg, _ := Load()
	var fileVal string
	if cfg != nil {
		fileVal = cfg.Sync.Interval
	}
	return durationSetting("HUBSYNC_SYNC_INTERVAL", fileVal, 30*time.Second)
}

// GetRetryBaseDelay returns the base flush retry delay.
// Priority: HUBSYNC_RETRY_BASE env > config.json sync.retry.base_delay > 1s
func GetRetryBaseDelay() time.Duration {
	cfg, _ := Load()
	var fileVal string
	if cfg != nil {
		fileVal = cfg.Sync.Retry.BaseDelay
	}
	return durationSetting("HUBSYNC_RETRY_BASE", fileVal, time.Second)
}

// GetRetryMaxDelay returns the backoff cap.
// Priority: HUBSYNC_RETRY_MAX_DELAY env > config.json sync.retry.max_delay > 30s
func GetRetryMaxDelay() time.Duration {
	cfg, _ := Load()
	var fileVal string
	if cfg != nil {
		fileVal = cfg.Sync.Retry.MaxDelay
	}
	return durationSetting("HUBSYNC_RETRY_MAX_DELAY", fileVal, 30*time.Second)
}

// GetRetryMaxAttempts returns the attempt ceiling before an operation is
// reported as a permanent failure.
// Priority: HUBSYNC_RETRY_ATTEMPTS env > config.json sync.retry.max_attempts > 5
func GetRetryMaxAttempts() int {
	cfg, _ := Load()
	var fileVal *int
	if cfg != nil {
		fileVal = cfg.Sync.Retry.MaxAttempts
	}
	return intSetting("HUBSYNC_RETRY_ATTEMPTS", fileVal, 5)
}

// GetNotifyMaxVisible returns the on-screen notification queue bound.
// Priority: HUBSYNC_NOTIFY_MAX_VISIBLE env > config.json notify.max_visible > 5
func GetNotifyMaxVisible() int {
	cfg, _ := Load()
	var fileVal *int
	if cfg != nil {
		fileVal = cfg.Notify.MaxVisible
	}
	return intSetting("HUBSYNC_NOTIFY_MAX_VISIBLE", fileVal, 5)
}

// GetNotifyDisplayFor returns how long a notification stays on screen.
// Priority: HUBSYNC_NOTIFY_DISPLAY_FOR env > config.json notify.display_for > 5s
func GetNotifyDisplayFor() time.Duration {
	cfg, _ := Load()
	var fileVal string
	if cfg != nil {
		fileVal = cfg.Notify.DisplayFor
	}
	return durationSetting("HUBSYNC_NOTIFY_DISPLAY_FOR", fileVal, 5*time.Second)
}

// GetBackupRetention returns the backup retention horizon.
// Priority: HUBSYNC_BACKUP_RETENTION_DAYS env > config.json backup.retention_days > 365
func GetBackupRetention() time.Duration {
	cfg, _ := Load()
	var fileVal *int
	if cfg != nil {
		fileVal = cfg.Backup.RetentionDays
	}
	days := intSetting("HUBSYNC_BACKUP_RETENTION_DAYS", fileVal, 365)
	return time.Duration(days) * 24 * time.Hour
}
