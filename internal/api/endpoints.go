package api

import (
	"context"
	"net/http"

	"stadtwache/internal/models"
)

// LoginRequest is the /api/auth/login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the /api/auth/register payload used when an admin
// creates a colleague account.
type RegisterRequest struct {
	Email         string `json:"email"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Role          string `json:"role,omitempty"`
	BadgeNumber   string `json:"badge_number,omitempty"`
	Department    string `json:"department,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ServiceNumber string `json:"service_number,omitempty"`
	Rank          string `json:"rank,omitempty"`
}

// ProfileUpdate is a partial profile update; nil fields are left unchanged.
type ProfileUpdate struct {
	Username      *string `json:"username,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	ServiceNumber *string `json:"service_number,omitempty"`
	Rank          *string `json:"rank,omitempty"`
	Department    *string `json:"department,omitempty"`
	Status        *string `json:"status,omitempty"`
}

// Login exchanges credentials for a bearer token. The token is not
// installed on the client; that is the session manager's decision.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Token, error) {
	var token models.Token
	err := c.do(ctx, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me validates the current token and returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a partial update to the authenticated user.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPut, "/api/auth/profile", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// BroadcastEmergency posts an emergency alert. The backend accepts the
// request unauthenticated so that a fallback alert can still go out after
// a session problem.
func (c *Client) BroadcastEmergency(ctx context.Context, alert *models.EmergencyAlert) (*models.BroadcastAck, error) {
	var ack models.BroadcastAck
	if err := c.do(ctx, http.MethodPost, "/api/emergency/broadcast", alert, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// UsersByStatus returns all users grouped by duty status.
func (c *Client) UsersByStatus(ctx context.Context) (map[string][]models.RosterEntry, error) {
	grouped := make(map[string][]models.RosterEntry)
	if err := c.do(ctx, http.MethodGet, "/api/users/by-status", nil, &grouped); err != nil {
		return nil, err
	}
	return grouped, nil
}

// CheckIn records a shift check-in with the given status.
func (c *Client) CheckIn(ctx context.Context, status string) (*models.CheckIn, error) {
	var checkIn models.CheckIn
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPost, "/api/checkin", body, &checkIn); err != nil {
		return nil, err
	}
	return &checkIn, nil
}

// CheckIns lists the authenticated user's check-ins, newest first.
func (c *Client) CheckIns(ctx context.Context) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	if err := c.do(ctx, http.MethodGet, "/api/checkins", nil, &checkIns); err != nil {
		return nil, err
	}
	return checkIns, nil
}

// RequestVacation submits a vacation request.
func (c *Client) RequestVacation(ctx context.Context, v models.Vacation) (*models.Vacation, error) {
	var created models.Vacation
	if err := c.do(ctx, http.MethodPost, "/api/vacations", v, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Vacations lists vacation requests visible to the authenticated user.
func (c *Client) Vacations(ctx context.Context) ([]models.Vacation, error) {
	var vacations []models.Vacation
	if err := c.do(ctx, http.MethodGet, "/api/vacations", nil, &vacations); err != nil {
		return nil, err
	}
	return vacations, nil
}

// CreateReport creates a shift report draft.
func (c *Client) CreateReport(ctx context.Context, r models.Report) (*models.Report, error) {
	var created models.Report
	if err := c.do(ctx, http.MethodPost, "/api/reports", r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateReport updates an existing report.
func (c *Client) UpdateReport(ctx context.Context, id string, r models.Report) (*models.Report, error) {
	var updated models.Report
	if err := c.do(ctx, http.MethodPut, "/api/reports/"+id, r, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Reports lists reports visible to the authenticated user.
func (c *Client) Reports(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := c.do(ctx, http.MethodGet, "/api/reports", nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// RegisterNotificationToken registers the device push token.
func (c *Client) RegisterNotificationToken(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	return c.do(ctx, http.MethodPost, "/api/user/notification-token", body, nil)
}
