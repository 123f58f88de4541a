package sos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadtwache/internal/models"
)

func TestBuildAlertPrimary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	loc := &models.Location{Latitude: 52.402, Longitude: 7.297, Accuracy: 8, Timestamp: now.UnixMilli()}
	id := Identity{ID: "u-1", Name: "wagner"}

	alert := BuildAlert(models.AlertPrimary, id, loc, "GPS: 52.402000, 7.297000", now)

	assert.Equal(t, models.AlertPrimary, alert.Type)
	assert.Equal(t, models.PriorityCritical, alert.Priority)
	assert.Equal(t, "u-1", alert.SenderID)
	assert.Contains(t, alert.Message, "wagner")
	assert.Equal(t, loc, alert.Location)
	assert.Equal(t, "GPS: 52.402000, 7.297000", alert.LocationStatus)
	assert.Equal(t, "2025-06-01T12:30:00Z", alert.Timestamp)
}

func TestBuildAlertWithoutIdentity(t *testing.T) {
	alert := BuildAlert(models.AlertPrimary, Identity{}, nil, statusDenied, time.Now())
	assert.Equal(t, "unknown", alert.SenderID)
	assert.Contains(t, alert.Message, "Unbekannte Person")

	fallback := BuildAlert(models.AlertFallback, Identity{}, nil, statusUnavailable, time.Now())
	assert.Contains(t, fallback.Message, "Team-Mitglied")
	assert.Contains(t, fallback.Message, "Kollegen kontaktieren")
}

func TestBuildAlertNeverShipsEmptyLocationStatus(t *testing.T) {
	alert := BuildAlert(models.AlertPrimary, Identity{}, nil, "", time.Now())
	require.NotEmpty(t, alert.LocationStatus)
	assert.Nil(t, alert.Location)
}

func TestBuildAlertDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	id := Identity{ID: "u-2", Name: "meier"}
	loc := &models.Location{Latitude: 1, Longitude: 2, Accuracy: 3, Timestamp: now.UnixMilli()}

	first := BuildAlert(models.AlertPrimary, id, loc, "GPS: 1.000000, 2.000000", now)
	second := BuildAlert(models.AlertPrimary, id, loc, "GPS: 1.000000, 2.000000", now)
	assert.Equal(t, first, second)

	// Only the timestamp may differ for a later send time.
	later := BuildAlert(models.AlertPrimary, id, loc, "GPS: 1.000000, 2.000000", now.Add(time.Minute))
	assert.NotEqual(t, first.Timestamp, later.Timestamp)
	later.Timestamp = first.Timestamp
	assert.Equal(t, first, later)
}
