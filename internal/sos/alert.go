package sos

import (
	"fmt"
	"time"

	"stadtwache/internal/models"
)

// Identity stamps outgoing alerts. Zero value means unauthenticated.
type Identity struct {
	ID   string
	Name string
}

// BuildAlert assembles an emergency alert. Pure: identical inputs yield
// identical alerts apart from the timestamp argument, which the caller
// supplies so the controller stamps send time exactly once.
//
// locStatus must explain the location; an empty string is replaced with
// the generic unavailable status rather than shipping an alert that
// violates the non-null location_status contract.
func BuildAlert(kind models.AlertKind, id Identity, loc *models.Location, locStatus string, now time.Time) *models.EmergencyAlert {
	if locStatus == "" {
		locStatus = statusUnavailable
	}
	senderID := id.ID
	if senderID == "" {
		senderID = "unknown"
	}
	return &models.EmergencyAlert{
		Type:           kind,
		Message:        alertMessage(kind, id.Name),
		Location:       loc,
		LocationStatus: locStatus,
		SenderID:       senderID,
		Timestamp:      now.UTC().Format(time.RFC3339),
		Priority:       models.PriorityCritical,
	}
}

func alertMessage(kind models.AlertKind, name string) string {
	if kind == models.AlertFallback {
		if name == "" {
			name = "Team-Mitglied"
		}
		return fmt.Sprintf("🚨 NOTFALL! %s - Bitte direkt Kollegen kontaktieren!", name)
	}
	if name == "" {
		name = "Unbekannte Person"
	}
	return fmt.Sprintf("🚨 NOTFALL-ALARM! %s benötigt sofortige Hilfe!", name)
}
