package output

import (
	"strings"
	"testing"
	"time"

	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/sync"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"one minute", now.Add(-70 * time.Second), "1m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-49 * time.Hour), "2d ago"},
		{"old dates use the date", now.Add(-30 * 24 * time.Hour), now.Add(-30 * 24 * time.Hour).Format("2006-01-02")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimeAgo(tt.t); got != tt.want {
				t.Errorf("FormatTimeAgo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512B"},
		{2048, "2.0KB"},
		{3 * 1024 * 1024, "3.0MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatSyncStatus(t *testing.T) {
	at := time.Now().Add(-2 * time.Minute)
	st := sync.Status{
		Online:        true,
		PendingCount:  3,
		ConflictCount: 1,
		LastSyncAt:    &at,
	}
	out := FormatSyncStatus(st)
	for _, want := range []string{"online", "Pending operations: 3", "Conflicts: 1", "2m ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	out = FormatSyncStatus(sync.Status{})
	if !strings.Contains(out, "offline") || !strings.Contains(out, "Never synced") {
		t.Errorf("zero status output:\n%s", out)
	}
}

func TestFormatConflict(t *testing.T) {
	c := models.ConflictRecord{
		EntityType: "preferences",
		EntityID:   "user-1",
		DetectedAt: time.Now(),
		ManualOnly: true,
	}
	out := FormatConflict(c)
	if !strings.Contains(out, "preferences/user-1") || !strings.Contains(out, "manual only") {
		t.Errorf("conflict output: %q", out)
	}
}

func TestFormatNotification(t *testing.T) {
	n := models.NotificationRecord{
		Type:      models.NotifyBookingReminder,
		Title:     "Upcoming appointment",
		Message:   "Tomorrow 10:00",
		Priority:  7,
		State:     models.NotificationDisplayed,
		CreatedAt: time.Now(),
	}
	out := FormatNotification(n)
	for _, want := range []string{"Upcoming appointment", "Tomorrow 10:00", "[p7]", "displayed"} {
		if !strings.Contains(out, want) {
			t.Errorf("notification output missing %q: %q", want, out)
		}
	}
}

func TestFormatBackup(t *testing.T) {
	b := models.BackupRecord{
		ID:            "bk-1234",
		BackupVersion: "20260829-103000",
		DeviceSource:  "dev-a",
		SizeBytes:     2048,
		IsRestorable:  false,
		CreatedAt:     time.Now(),
	}
	out := FormatBackup(b)
	for _, want := range []string{"bk-1234", "20260829-103000", "2.0KB", "from dev-a", "deleted"} {
		if !strings.Contains(out, want) {
			t.Errorf("backup output missing %q: %q", want, out)
		}
	}
}

func TestStateBadge_UnknownState(t *testing.T) {
	if got := StateBadge("vanished"); !strings.Contains(got, "?") {
		t.Errorf("unknown state badge: %q", got)
	}
}

func TestRenderMarkdownWithWidth(t *testing.T) {
	out, err := RenderMarkdownWithWidth("# Offer\n\nBook now.", 40)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Offer") || !strings.Contains(out, "Book now.") {
		t.Errorf("rendered output: %q", out)
	}

	out, err = RenderMarkdownWithWidth("   ", 40)
	if err != nil || out != "" {
		t.Errorf("blank input: %q, %v", out, err)
	}
}
