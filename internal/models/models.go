package models

import "time"

// User roles as defined by the backend.
const (
	RoleAdmin     = "admin"
	RolePolice    = "police"
	RoleCommunity = "community"
	RoleTrainee   = "trainee"
)

// Duty statuses carried in User.Status. The backend stores the German
// display strings directly.
const (
	StatusOnDuty      = "Im Dienst"
	StatusBreak       = "Pause"
	StatusDeployment  = "Einsatz"
	StatusPatrol      = "Streife"
	StatusUnavailable = "Nicht verfügbar"
)

// User is the backend user document.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	BadgeNumber   string    `json:"badge_number,omitempty"`
	Department    string    `json:"department,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	ServiceNumber string    `json:"service_number,omitempty"`
	Rank          string    `json:"rank,omitempty"`
	Status        string    `json:"status,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Token is the /api/auth/login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Location is a device GPS fix. Timestamp is epoch milliseconds, matching
// what the mobile clients always sent.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// CapturedAt converts the millisecond timestamp back to wall time.
func (l Location) CapturedAt() time.Time {
	return time.UnixMilli(l.Timestamp)
}

// AlertKind selects which code path produced an emergency alert.
type AlertKind string

const (
	AlertPrimary  AlertKind = "sos_alarm"
	AlertFallback AlertKind = "sos_fallback"
)

// PriorityCritical is the fixed priority of every emergency alert.
const PriorityCritical = "critical"

// EmergencyAlert is the body of POST /api/emergency/broadcast.
//
// Message and Priority are always set. Location may be null, in which case
// LocationStatus explains why; the receiving team relies on that string to
// decide whether to attempt other contact means.
type EmergencyAlert struct {
	Type           AlertKind `json:"type"`
	Message        string    `json:"message"`
	Location       *Location `json:"location"`
	LocationStatus string    `json:"location_status"`
	SenderID       string    `json:"sender_id"`
	Timestamp      string    `json:"timestamp"` // RFC 3339
	Priority       string    `json:"priority"`
}

// BroadcastAck is the backend's acknowledgement of an emergency broadcast.
type BroadcastAck struct {
	Success             bool   `json:"success"`
	BroadcastID         string `json:"broadcast_id"`
	Message             string `json:"message"`
	LocationTransmitted bool   `json:"location_transmitted"`
	LocationStatus      string `json:"location_status"`
	Timestamp           string `json:"timestamp"`
}

// RosterEntry is one user in the /api/users/by-status listing.
type RosterEntry struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Phone         string     `json:"phone,omitempty"`
	ServiceNumber string     `json:"service_number,omitempty"`
	Rank          string     `json:"rank,omitempty"`
	Department    string     `json:"department,omitempty"`
	Status        string     `json:"status"`
	IsOnline      bool       `json:"is_online"`
	OnlineStatus  string     `json:"online_status"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}

// Check-in statuses.
const (
	CheckInOK         = "ok"
	CheckInHelpNeeded = "help_needed"
	CheckInEmergency  = "emergency"
)

// CheckIn is a periodic shift check-in.
type CheckIn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Vacation request statuses.
const (
	VacationPending  = "pending"
	VacationApproved = "approved"
	VacationRejected = "rejected"
)

// Vacation is a vacation request.
type Vacation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Report is a shift report.
type Report struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name,omitempty"`
	ShiftDate  string    `json:"shift_date"`
	Status     string    `json:"status,omitempty"` // draft, submitted, reviewed
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
