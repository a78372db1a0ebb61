package notify

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/models"
)

// memPrefs is an in-memory preference store.
type memPrefs struct {
	p   models.Preferences
	err error
}

func (m *memPrefs) Load() (models.Preferences, error) { return m.p, m.err }
func (m *memPrefs) Save(p models.Preferences) error   { m.p = p; return nil }

// recordBridge captures native bridge calls.
type recordBridge struct {
	mu        sync.Mutex
	perm      Permission
	requested bool
	shown     []string
	closed    []string
}

func (b *recordBridge) Permission() Permission { return b.perm }
func (b *recordBridge) RequestPermission() (Permission, error) {
	b.requested = true
	b.perm = PermissionGranted
	return b.perm, nil
}
func (b *recordBridge) Show(id, _, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown = append(b.shown, id)
	return nil
}
func (b *recordBridge) Close(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, id)
	return nil
}

func newTestDispatcher(t *testing.T, p *memPrefs, bridge Bridge) (*Dispatcher, *db.DB) {
	t.Helper()
	store, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// Long display window so tests control expiry explicitly.
	d := NewDispatcher(store, p, bridge, Options{MaxVisible: 5, DisplayFor: time.Hour}, nil)
	t.Cleanup(d.Stop)
	return d, store
}

func atClock(hour, min int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 29, hour, min, 0, 0, time.Local)
	}
}

func enabledPrefs(quiet bool) *memPrefs {
	p := models.DefaultPreferences()
	p.QuietHours.Enabled = quiet
	return &memPrefs{p: p}
}

func TestDispatch_Shows(t *testing.T) {
	d, _ := newTestDispatcher(t, enabledPrefs(false), nil)

	rec, err := d.Dispatch(models.NotifyBookingReminder, "Upcoming appointment", "Tomorrow 10:00", 5)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.State != models.NotificationDisplayed {
		t.Errorf("state: got %s, want displayed", rec.State)
	}
	if visible := d.Visible(); len(visible) != 1 || visible[0].ID != rec.ID {
		t.Errorf("visible: %+v", visible)
	}
}

func TestDispatch_QuietHoursMidnightWrap(t *testing.T) {
	d, _ := newTestDispatcher(t, enabledPrefs(true), nil) // 22:00–08:00

	d.now = atClock(23, 30)
	rec, err := d.Dispatch(models.NotifyPromotion, "Autumn offer", "", 3)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.State != models.NotificationCreated {
		t.Errorf("23:30 should be suppressed, got state %s", rec.State)
	}
	if len(d.Visible()) != 0 {
		t.Error("suppressed notification must not be visible")
	}

	d.now = atClock(9, 0)
	rec, err = d.Dispatch(models.NotifyPromotion, "Autumn offer", "", 3)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.State != models.NotificationDisplayed {
		t.Errorf("09:00 is outside quiet hours, got state %s", rec.State)
	}
}

func TestDispatch_DisabledSuppressesButKeepsHistory(t *testing.T) {
	p := enabledPrefs(false)
	p.p.EnableNotifications = false
	d, _ := newTestDispatcher(t, p, nil)

	rec, err := d.Dispatch(models.NotifySystemUpdate, "Update available", "", 8)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.State != models.NotificationCreated {
		t.Errorf("state: got %s, want created", rec.State)
	}

	history, err := d.History(10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("suppressed notification missing from history: %d records", len(history))
	}
}

func TestDispatch_PrefsErrorFailsClosed(t *testing.T) {
	d, _ := newTestDispatcher(t, &memPrefs{err: errors.New("disk gone")}, nil)

	rec, err := d.Dispatch(models.NotifyBookingReminder, "Upcoming appointment", "", 5)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.State != models.NotificationCreated {
		t.Errorf("unreadable preferences must suppress, got %s", rec.State)
	}
}

func TestDispatch_BoundedQueueEvictsOldest(t *testing.T) {
	d, store := newTestDispatcher(t, enabledPrefs(false), nil)

	var first models.NotificationRecord
	for i := 0; i < 6; i++ {
		rec, err := d.Dispatch(models.NotifyBookingReminder, fmt.Sprintf("Reminder %d", i), "", 4)
		if err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
		if i == 0 {
			first = rec
		}
	}

	visible := d.Visible()
	if len(visible) != 5 {
		t.Fatalf("visible: got %d, want 5", len(visible))
	}
	for _, rec := range visible {
		if rec.ID == first.ID {
			t.Error("oldest notification should be evicted")
		}
	}
	if visible[0].Title != "Reminder 5" {
		t.Errorf("newest first: got %q", visible[0].Title)
	}

	// The evicted notification is finalized in storage, not lost.
	records, err := store.ListRecentNotifications(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, rec := range records {
		if rec.ID == first.ID && rec.State != models.NotificationDismissed {
			t.Errorf("evicted state: got %s", rec.State)
		}
	}
}

func TestExpiry_RemovesFromScreen(t *testing.T) {
	d, store := newTestDispatcher(t, enabledPrefs(false), nil)

	rec, err := d.Dispatch(models.NotifyPaymentReceived, "Payment received", "", 5)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	d.onDeadline(rec.ID, kindExpire)

	if len(d.Visible()) != 0 {
		t.Error("expired notification still visible")
	}
	records, _ := store.ListRecentNotifications(1)
	if records[0].State != models.NotificationExpired {
		t.Errorf("state: got %s", records[0].State)
	}
}

func TestMarkRead_TerminalAndCancelsExpiry(t *testing.T) {
	d, store := newTestDispatcher(t, enabledPrefs(false), nil)

	rec, err := d.Dispatch(models.NotifyBookingConfirmation, "Booking confirmed", "", 5)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := d.MarkRead(rec.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(d.Visible()) != 0 {
		t.Error("read notification still on screen")
	}
	d.sched.mu.Lock()
	armed := len(d.sched.heap)
	d.sched.mu.Unlock()
	if armed != 0 {
		t.Errorf("expiry deadline survived mark read: %d armed", armed)
	}

	// A deadline already in flight when the read landed must not
	// demote the terminal state.
	d.onDeadline(rec.ID, kindExpire)

	records, _ := store.ListRecentNotifications(1)
	if !records[0].Read {
		t.Error("read flag lost")
	}
	if records[0].State != models.NotificationRead {
		t.Errorf("state: got %s, want read", records[0].State)
	}
}

func TestMarkRead_ShortDisplayWindow(t *testing.T) {
	store, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	d := NewDispatcher(store, enabledPrefs(false), nil, Options{MaxVisible: 5, DisplayFor: 50 * time.Millisecond}, nil)
	t.Cleanup(d.Stop)

	rec, err := d.Dispatch(models.NotifyBookingConfirmation, "Booking confirmed", "", 5)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := d.MarkRead(rec.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	records, _ := store.ListRecentNotifications(1)
	if records[0].State != models.NotificationRead {
		t.Errorf("state after display window elapsed: got %s, want read", records[0].State)
	}
}

func TestEvict_CancelsExpiryDeadline(t *testing.T) {
	d, _ := newTestDispatcher(t, enabledPrefs(false), nil)

	var first models.NotificationRecord
	for i := 0; i < 6; i++ {
		rec, err := d.Dispatch(models.NotifyPromotion, fmt.Sprintf("Offer %d", i), "", 2)
		if err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
		if i == 0 {
			first = rec
		}
	}

	d.sched.mu.Lock()
	armed := len(d.sched.heap)
	var evictedArmed bool
	for _, dl := range d.sched.heap {
		if dl.id == first.ID {
			evictedArmed = true
		}
	}
	d.sched.mu.Unlock()
	if evictedArmed {
		t.Error("evicted notification still has a deadline armed")
	}
	if armed != 5 {
		t.Errorf("armed deadlines: got %d, want 5", armed)
	}
}

func TestDismissAndClearAll(t *testing.T) {
	d, _ := newTestDispatcher(t, enabledPrefs(false), nil)

	rec, err := d.Dispatch(models.NotifyPromotion, "Offer", "", 2)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := d.Dismiss(rec.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if len(d.Visible()) != 0 {
		t.Error("dismissed notification still visible")
	}

	for i := 0; i < 3; i++ {
		if _, err := d.Dispatch(models.NotifyPromotion, "Offer", "", 2); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	if err := d.ClearAll(); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if len(d.Visible()) != 0 {
		t.Error("clear all left notifications on screen")
	}
}

func TestHighPriority_GoesNative(t *testing.T) {
	bridge := &recordBridge{perm: PermissionGranted}
	d, _ := newTestDispatcher(t, enabledPrefs(false), bridge)

	low, err := d.Dispatch(models.NotifyPromotion, "Offer", "", 6)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	high, err := d.Dispatch(models.NotifySystemUpdate, "Action required", "", 7)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(bridge.shown) != 1 || bridge.shown[0] != high.ID {
		t.Fatalf("native shown: %v (low=%s high=%s)", bridge.shown, low.ID, high.ID)
	}

	// Auto-close deadline dismisses the native copy only.
	d.onDeadline(high.ID, kindClose)
	if len(bridge.closed) != 1 || bridge.closed[0] != high.ID {
		t.Errorf("native closed: %v", bridge.closed)
	}
	if len(d.Visible()) != 2 {
		t.Error("native auto-close must not touch the in-app queue")
	}
}

func TestHighPriority_RequestsPermission(t *testing.T) {
	bridge := &recordBridge{perm: PermissionUndetermined}
	d, _ := newTestDispatcher(t, enabledPrefs(false), bridge)

	if _, err := d.Dispatch(models.NotifySystemUpdate, "Action required", "", 9); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !bridge.requested {
		t.Error("undetermined permission should trigger a request")
	}
	if len(bridge.shown) != 1 {
		t.Errorf("shown after grant: %v", bridge.shown)
	}
}

func TestDispatch_Validation(t *testing.T) {
	d, _ := newTestDispatcher(t, enabledPrefs(false), nil)

	if _, err := d.Dispatch("carrier_pigeon", "Hi", "", 1); err == nil {
		t.Error("unknown type should be rejected")
	}
	if _, err := d.Dispatch(models.NotifyPromotion, "Hi", "", 11); err == nil {
		t.Error("out-of-range priority should be rejected")
	}
	if _, err := d.Dispatch(models.NotifyPromotion, "", "", 1); err == nil {
		t.Error("empty title should be rejected")
	}
}

func TestInQuietWindow(t *testing.T) {
	tests := []struct {
		name             string
		start, end, min  int
		want             bool
	}{
		{"inside plain window", 9 * 60, 17 * 60, 12 * 60, true},
		{"before plain window", 9 * 60, 17 * 60, 8 * 60, false},
		{"end is exclusive", 9 * 60, 17 * 60, 17 * 60, false},
		{"wrap late evening", 22 * 60, 8 * 60, 23*60 + 30, true},
		{"wrap early morning", 22 * 60, 8 * 60, 6 * 60, true},
		{"wrap daytime outside", 22 * 60, 8 * 60, 9 * 60, false},
		{"empty window", 10 * 60, 10 * 60, 10 * 60, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inQuietWindow(tt.start, tt.end, tt.min); got != tt.want {
				t.Errorf("inQuietWindow(%d, %d, %d) = %v, want %v", tt.start, tt.end, tt.min, got, tt.want)
			}
		})
	}
}
