package prefs

import (
	"testing"

	"github.com/mariia-hub/hubsync/internal/models"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	store := NewFileStoreAt(t.TempDir())

	p, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.EnableNotifications {
		t.Error("notifications should default to enabled")
	}
	if p.QuietHours.Enabled {
		t.Error("quiet hours should default to disabled")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := NewFileStoreAt(t.TempDir())

	want := models.Preferences{
		EnableNotifications: false,
		QuietHours:          models.QuietHours{Enabled: true, Start: "22:00", End: "08:00"},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"22:00", 1320, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := models.Preferences{
		EnableNotifications: true,
		QuietHours:          models.QuietHours{Enabled: true, Start: "21:30", End: "07:15"},
	}
	if err := Validate(ok); err != nil {
		t.Errorf("valid prefs rejected: %v", err)
	}

	bad := ok
	bad.QuietHours.Start = "25:00"
	if err := Validate(bad); err == nil {
		t.Error("expected error for out-of-range start")
	}

	// Disabled quiet hours skip clock validation entirely.
	disabled := models.Preferences{QuietHours: models.QuietHours{Enabled: false, Start: "garbage"}}
	if err := Validate(disabled); err != nil {
		t.Errorf("disabled quiet hours should not validate clocks: %v", err)
	}
}
