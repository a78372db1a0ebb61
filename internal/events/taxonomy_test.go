package events

import (
	"testing"
)

func TestNormalizeEntityType(t *testing.T) {
	tests := []struct {
		input    string
		expected EntityType
		valid    bool
	}{
		// Bookings
		{"booking", EntityBookings, true},
		{"bookings", EntityBookings, true},
		{"BOOKING", EntityBookings, true},
		{"appointment", EntityBookings, true},
		{"appointments", EntityBookings, true},

		// Clients
		{"client", EntityClients, true},
		{"clients", EntityClients, true},

		// Services
		{"service", EntityServices, true},
		{"services", EntityServices, true},

		// Staff
		{"staff", EntityStaff, true},

		// Payments
		{"payment", EntityPayments, true},
		{"payments", EntityPayments, true},

		// Reviews
		{"review", EntityReviews, true},
		{"reviews", EntityReviews, true},

		// Preferences
		{"preference", EntityPreferences, true},
		{"preferences", EntityPreferences, true},

		// Whitespace
		{"  bookings  ", EntityBookings, true},

		// Invalid
		{"", "", false},
		{"widgets", "", false},
		{"staffs", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeEntityType(tt.input)
		if ok != tt.valid {
			t.Errorf("NormalizeEntityType(%q) valid = %v, want %v", tt.input, ok, tt.valid)
			continue
		}
		if got != tt.expected {
			t.Errorf("NormalizeEntityType(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsValidEntityType(t *testing.T) {
	for et := range AllEntityTypes() {
		if !IsValidEntityType(string(et)) {
			t.Errorf("IsValidEntityType(%q) = false for canonical type", et)
		}
	}
	if IsValidEntityType("booking") {
		t.Error("singular forms are aliases, not canonical types")
	}
	if IsValidEntityType("widgets") {
		t.Error("unknown type should be invalid")
	}
}
