// Package events defines the canonical entity taxonomy for the sync
// layer. Every queued operation and remote event is keyed by one of
// these entity types, so the vocabulary is normalized once, here,
// before anything touches storage.
package events

import "strings"

// EntityType represents the canonical entity types in the sync system.
type EntityType string

// Canonical entity types.
const (
	EntityBookings    EntityType = "bookings"
	EntityClients     EntityType = "clients"
	EntityServices    EntityType = "services"
	EntityStaff       EntityType = "staff"
	EntityPayments    EntityType = "payments"
	EntityReviews     EntityType = "reviews"
	EntityPreferences EntityType = "preferences"
)

// AllEntityTypes returns all valid entity types.
func AllEntityTypes() map[EntityType]bool {
	return map[EntityType]bool{
		EntityBookings:    true,
		EntityClients:     true,
		EntityServices:    true,
		EntityStaff:       true,
		EntityPayments:    true,
		EntityReviews:     true,
		EntityPreferences: true,
	}
}

// IsValidEntityType checks if the given entity type string is valid.
func IsValidEntityType(et string) bool {
	return AllEntityTypes()[EntityType(et)]
}

// NormalizeEntityType normalizes an entity type string to its canonical
// form. Returns the canonical entity type and true if valid, or empty
// string and false if invalid. Handles singular forms and the
// "appointment" alias the mobile apps use for bookings.
func NormalizeEntityType(entityType string) (EntityType, bool) {
	switch strings.ToLower(strings.TrimSpace(entityType)) {
	case "booking", "bookings", "appointment", "appointments":
		return EntityBookings, true
	case "client", "clients":
		return EntityClients, true
	case "service", "services":
		return EntityServices, true
	case "staff":
		return EntityStaff, true
	case "payment", "payments":
		return EntityPayments, true
	case "review", "reviews":
		return EntityReviews, true
	case "preference", "preferences":
		return EntityPreferences, true
	default:
		return "", false
	}
}
