package models

import (
	"encoding/json"
	"time"
)

// Platform identifies the kind of device a hubsync client runs on.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformDesktop Platform = "desktop"
)

// ValidPlatform reports whether p is a known platform value.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformWeb, PlatformIOS, PlatformAndroid, PlatformDesktop:
		return true
	}
	return false
}

// Device is the stable per-install identity of this client.
// Created on first run; only Name may change afterwards.
type Device struct {
	ID        string    `json:"id"`
	Platform  Platform  `json:"platform"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolutionStrategy selects how a conflict is resolved.
type ResolutionStrategy string

const (
	StrategyUseLocal  ResolutionStrategy = "use_local"
	StrategyUseRemote ResolutionStrategy = "use_remote"
	StrategyMerge     ResolutionStrategy = "merge"
	StrategyManual    ResolutionStrategy = "manual"
)

// ValidStrategy reports whether s is a known resolution strategy.
func ValidStrategy(s ResolutionStrategy) bool {
	switch s {
	case StrategyUseLocal, StrategyUseRemote, StrategyMerge, StrategyManual:
		return true
	}
	return false
}

// PendingOperation is a local mutation not yet acknowledged by the hub.
// Operations for the same (EntityType, EntityID) coalesce: latest wins.
type PendingOperation struct {
	ID           string          `json:"id"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Payload      json.RawMessage `json:"payload"`
	BaseRevision int64           `json:"base_revision"`
	CreatedAt    time.Time       `json:"created_at"`
	AttemptCount int             `json:"attempt_count"`
}

// ConflictRecord captures a divergent local/remote pair for one entity.
// At most one exists per (EntityType, EntityID); a newer conflicting
// update replaces the record.
type ConflictRecord struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	LocalData  json.RawMessage `json:"local_data"`
	RemoteData json.RawMessage `json:"remote_data"`
	// RemoteRevision is the revision the winning side will be acknowledged at.
	RemoteRevision int64     `json:"remote_revision"`
	DetectedAt     time.Time `json:"detected_at"`
	// Strategy is unset until the caller picks one. Conflicts detected with a
	// missing base revision are pinned to manual resolution.
	Strategy   ResolutionStrategy `json:"resolution_strategy,omitempty"`
	ManualOnly bool               `json:"manual_only,omitempty"`
}

// NotificationType is the closed set of inbound notification event kinds.
type NotificationType string

const (
	NotifyBookingReminder     NotificationType = "booking_reminder"
	NotifyBookingConfirmation NotificationType = "booking_confirmation"
	NotifyPaymentReceived     NotificationType = "payment_received"
	NotifyPromotion           NotificationType = "promotion"
	NotifySystemUpdate        NotificationType = "system_update"
)

// ValidNotificationType reports whether t is a known notification type.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotifyBookingReminder, NotifyBookingConfirmation,
		NotifyPaymentReceived, NotifyPromotion, NotifySystemUpdate:
		return true
	}
	return false
}

// NotificationState tracks the display lifecycle of a notification.
// Read, Dismissed, and Expired are terminal.
type NotificationState string

const (
	NotificationCreated   NotificationState = "created"
	NotificationDisplayed NotificationState = "displayed"
	NotificationRead      NotificationState = "read"
	NotificationDismissed NotificationState = "dismissed"
	NotificationExpired   NotificationState = "expired"
)

// Terminal reports whether s is a terminal notification state.
func (s NotificationState) Terminal() bool {
	return s == NotificationRead || s == NotificationDismissed || s == NotificationExpired
}

// NotificationRecord is an accepted notification in the on-screen queue.
type NotificationRecord struct {
	ID        string            `json:"id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Priority  int               `json:"priority"` // 0..9
	Read      bool              `json:"read"`
	State     NotificationState `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
}

// BackupRecord is a versioned snapshot of the synchronizable preference state.
// Soft-deleted records keep their stored bytes; IsRestorable flips to false.
type BackupRecord struct {
	ID            string    `json:"id"`
	BackupVersion string    `json:"backup_version"`
	CreatedAt     time.Time `json:"created_at"`
	DeviceSource  string    `json:"device_source"`
	SizeBytes     int64     `json:"size_bytes"`
	IsRestorable  bool      `json:"is_restorable"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// QuietHours is a user-configured suppression window in local minutes-of-day.
// Start and End are "HH:MM" strings; the window is [start, end) and may
// cross midnight (start > end).
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Preferences is the synchronizable notification preference state.
type Preferences struct {
	EnableNotifications bool       `json:"enable_notifications"`
	QuietHours          QuietHours `json:"quiet_hours"`
}

// DefaultPreferences returns the first-run preference state.
func DefaultPreferences() Preferences {
	return Preferences{
		EnableNotifications: true,
		QuietHours:          QuietHours{Enabled: false, Start: "22:00", End: "08:00"},
	}
}
