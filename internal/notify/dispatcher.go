// Package notify turns app events into user-visible notifications. It
// enforces the user's preferences (master switch and quiet hours),
// bounds how many notifications are on screen at once, expires stale
// ones, and mirrors high-priority notifications to the platform's
// native surface.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/prefs"
)

const (
	// nativeMinPriority is the threshold at or above which a
	// notification is mirrored to the native bridge.
	nativeMinPriority = 7
	// nativeAutoClose dismisses native notifications that the user
	// never touched.
	nativeAutoClose = 10 * time.Second
)

// Options tunes the dispatcher. Zero values fall back to the shipped
// defaults: five visible notifications, five-second display window.
type Options struct {
	MaxVisible int
	DisplayFor time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxVisible <= 0 {
		o.MaxVisible = 5
	}
	if o.DisplayFor <= 0 {
		o.DisplayFor = 5 * time.Second
	}
	return o
}

// Dispatcher routes notifications to the in-app queue and the native
// bridge, and persists every notification to history regardless of
// whether it was shown.
type Dispatcher struct {
	store  *db.DB
	prefs  prefs.Store
	bridge Bridge
	opts   Options
	logger *slog.Logger
	sched  *scheduler

	mu      sync.Mutex
	visible []models.NotificationRecord // newest first
	native  map[string]bool

	now func() time.Time
}

// NewDispatcher wires the dispatcher. bridge may be nil on platforms
// without a native surface.
func NewDispatcher(store *db.DB, prefStore prefs.Store, bridge Bridge, opts Options, logger *slog.Logger) *Dispatcher {
	if bridge == nil {
		bridge = NopBridge{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		store:  store,
		prefs:  prefStore,
		bridge: bridge,
		opts:   opts.withDefaults(),
		logger: logger,
		native: make(map[string]bool),
		now:    time.Now,
	}
	d.sched = newScheduler(d.onDeadline)
	return d
}

// Stop cancels all pending expiry timers.
func (d *Dispatcher) Stop() {
	d.sched.stop()
}

// Dispatch records a notification and shows it unless preferences
// suppress it. The returned record's state reports what happened:
// displayed when shown, created when suppressed. Suppressed
// notifications still land in history.
func (d *Dispatcher) Dispatch(typ models.NotificationType, title, message string, priority int) (models.NotificationRecord, error) {
	if !models.ValidNotificationType(typ) {
		return models.NotificationRecord{}, fmt.Errorf("unknown notification type %q", typ)
	}
	if priority < 0 || priority > 9 {
		return models.NotificationRecord{}, fmt.Errorf("priority %d out of range 0..9", priority)
	}
	if title == "" {
		return models.NotificationRecord{}, fmt.Errorf("notification title is required")
	}

	now := d.now()
	rec := models.NotificationRecord{
		Type:      typ,
		Title:     title,
		Message:   message,
		Priority:  priority,
		State:     models.NotificationCreated,
		CreatedAt: now.UTC(),
	}

	show := d.shouldDisplay(now)
	if show {
		rec.State = models.NotificationDisplayed
	}
	if err := d.store.InsertNotification(&rec); err != nil {
		return rec, err
	}
	if !show {
		d.logger.Debug("notification suppressed", "id", rec.ID, "type", typ)
		return rec, nil
	}

	d.mu.Lock()
	d.visible = append([]models.NotificationRecord{rec}, d.visible...)
	var evicted []models.NotificationRecord
	if len(d.visible) > d.opts.MaxVisible {
		evicted = d.visible[d.opts.MaxVisible:]
		d.visible = d.visible[:d.opts.MaxVisible]
	}
	d.mu.Unlock()

	for _, old := range evicted {
		d.sched.cancel(old.ID)
		d.retire(old.ID, models.NotificationDismissed)
	}

	d.sched.schedule(rec.ID, kindExpire, now.Add(d.opts.DisplayFor))

	if priority >= nativeMinPriority {
		d.showNative(rec, now)
	}
	return rec, nil
}

// shouldDisplay applies the master switch and quiet hours. Preferences
// that fail to load or parse suppress display rather than waking the
// user at night.
func (d *Dispatcher) shouldDisplay(now time.Time) bool {
	p, err := d.prefs.Load()
	if err != nil {
		d.logger.Warn("preferences unavailable, suppressing notification", "err", err)
		return false
	}
	if !p.EnableNotifications {
		return false
	}
	if !p.QuietHours.Enabled {
		return true
	}
	start, err := prefs.ParseClock(p.QuietHours.Start)
	if err != nil {
		d.logger.Warn("bad quiet hours start, suppressing", "value", p.QuietHours.Start, "err", err)
		return false
	}
	end, err := prefs.ParseClock(p.QuietHours.End)
	if err != nil {
		d.logger.Warn("bad quiet hours end, suppressing", "value", p.QuietHours.End, "err", err)
		return false
	}
	return !inQuietWindow(start, end, now.Hour()*60+now.Minute())
}

// inQuietWindow reports whether minute-of-day m falls inside
// [start, end). A window whose end precedes its start wraps midnight,
// e.g. 22:00 to 08:00. Equal bounds mean an empty window.
func inQuietWindow(start, end, m int) bool {
	switch {
	case start == end:
		return false
	case start < end:
		return m >= start && m < end
	default:
		return m >= start || m < end
	}
}

func (d *Dispatcher) showNative(rec models.NotificationRecord, now time.Time) {
	perm := d.bridge.Permission()
	if perm == PermissionUndetermined {
		var err error
		perm, err = d.bridge.RequestPermission()
		if err != nil {
			d.logger.Warn("permission request failed", "err", err)
			return
		}
	}
	if perm != PermissionGranted {
		return
	}
	if err := d.bridge.Show(rec.ID, rec.Title, rec.Message); err != nil {
		d.logger.Warn("native notification failed", "id", rec.ID, "err", err)
		return
	}
	d.mu.Lock()
	d.native[rec.ID] = true
	d.mu.Unlock()
	d.sched.schedule(rec.ID, kindClose, now.Add(nativeAutoClose))
}

// Visible returns the on-screen notifications, newest first.
func (d *Dispatcher) Visible() []models.NotificationRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.NotificationRecord(nil), d.visible...)
}

// MarkRead marks a notification read and cancels its expiry timer.
// Read is terminal: the entry leaves the screen and a later deadline
// cannot demote it.
func (d *Dispatcher) MarkRead(id string) error {
	d.sched.cancel(id)
	return d.retire(id, models.NotificationRead)
}

// Dismiss removes a notification from the screen and cancels its timers.
func (d *Dispatcher) Dismiss(id string) error {
	d.sched.cancel(id)
	return d.retire(id, models.NotificationDismissed)
}

// ClearAll dismisses every visible notification.
func (d *Dispatcher) ClearAll() error {
	d.mu.Lock()
	ids := make([]string, len(d.visible))
	for i, rec := range d.visible {
		ids[i] = rec.ID
	}
	d.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := d.Dismiss(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// History returns the most recent notifications from storage,
// including suppressed and expired ones.
func (d *Dispatcher) History(limit int) ([]models.NotificationRecord, error) {
	return d.store.ListRecentNotifications(limit)
}

func (d *Dispatcher) onDeadline(id string, kind expiryKind) {
	switch kind {
	case kindExpire:
		if err := d.retire(id, models.NotificationExpired); err != nil {
			d.logger.Warn("expiry failed", "id", id, "err", err)
		}
	case kindClose:
		d.closeNative(id)
	}
}

// retire removes id from the visible queue and records its final
// state. The storage layer keeps terminal states sticky, so a late
// deadline racing a read or dismiss cannot overwrite either.
func (d *Dispatcher) retire(id string, state models.NotificationState) error {
	d.mu.Lock()
	kept := d.visible[:0]
	for _, rec := range d.visible {
		if rec.ID == id {
			continue
		}
		kept = append(kept, rec)
	}
	d.visible = kept
	d.mu.Unlock()

	d.closeNative(id)
	return d.store.SetNotificationState(id, state)
}

func (d *Dispatcher) closeNative(id string) {
	d.mu.Lock()
	shown := d.native[id]
	delete(d.native, id)
	d.mu.Unlock()
	if !shown {
		return
	}
	if err := d.bridge.Close(id); err != nil {
		d.logger.Warn("native close failed", "id", id, "err", err)
	}
}
