package main

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email, username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	role := req.Role
	if role == "" {
		role = models.RolePolice
	}
	acct := &account{
		User: models.User{
			ID:            uuid.New().String(),
			Email:         req.Email,
			Username:      req.Username,
			Role:          role,
			BadgeNumber:   req.BadgeNumber,
			Department:    req.Department,
			Phone:         req.Phone,
			ServiceNumber: req.ServiceNumber,
			Rank:          req.Rank,
			Status:        models.StatusOnDuty,
			IsActive:      true,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		},
		PasswordHash: string(hash),
	}
	s.users[acct.ID] = acct
	s.byEmail[acct.Email] = acct.ID
	writeJSON(w, http.StatusOK, acct.User)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	id, ok := s.byEmail[req.Email]
	var acct *account
	if ok {
		acct = s.users[id]
	}
	s.mu.Unlock()

	if acct == nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
		writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}
	token, err := s.issueToken(acct)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, models.Token{
		AccessToken: token,
		TokenType:   "bearer",
		User:        acct.User,
	})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request, acct *account) {
	writeJSON(w, http.StatusOK, acct.User)
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request, acct *account) {
	var update api.ProfileUpdate
	if !decode(w, r, &update) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&acct.Username, update.Username)
	apply(&acct.Phone, update.Phone)
	apply(&acct.ServiceNumber, update.ServiceNumber)
	apply(&acct.Rank, update.Rank)
	apply(&acct.Department, update.Department)
	apply(&acct.Status, update.Status)
	acct.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, acct.User)
}

func (s *server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var alert models.EmergencyAlert
	if !decode(w, r, &alert) {
		return
	}
	if alert.Message == "" {
		alert.Message = "Notfall-Alarm"
	}
	if alert.LocationStatus == "" {
		alert.LocationStatus = "Unbekannt"
	}

	s.mu.Lock()
	s.broadcasts = append(s.broadcasts, alert)
	s.mu.Unlock()

	locationInfo := " - GPS: " + alert.LocationStatus
	if alert.Location != nil {
		locationInfo = fmt.Sprintf(" at GPS: %.6f, %.6f (±%.0fm)",
			alert.Location.Latitude, alert.Location.Longitude, alert.Location.Accuracy)
	}
	id := uuid.New().String()
	s.log.Warn("EMERGENCY BROADCAST"+locationInfo,
		zap.String("broadcast_id", id),
		zap.String("sender_id", alert.SenderID),
		zap.String("type", string(alert.Type)))

	writeJSON(w, http.StatusOK, models.BroadcastAck{
		Success:             true,
		BroadcastID:         id,
		Message:             "Emergency alert broadcasted to all team members",
		LocationTransmitted: alert.Location != nil,
		LocationStatus:      alert.LocationStatus,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *server) handleUsersByStatus(w http.ResponseWriter, r *http.Request, _ *account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	grouped := make(map[string][]models.RosterEntry)
	for _, acct := range s.users {
		status := acct.Status
		if status == "" {
			status = models.StatusOnDuty
		}
		online := !acct.LastActivity.IsZero() && now.Sub(acct.LastActivity) < onlineWindow
		onlineStatus := "Offline"
		if online {
			onlineStatus = "Online"
		}
		entry := models.RosterEntry{
			ID:            acct.ID,
			Username:      acct.Username,
			Phone:         acct.Phone,
			ServiceNumber: acct.ServiceNumber,
			Rank:          acct.Rank,
			Department:    acct.Department,
			Status:        status,
			IsOnline:      online,
			OnlineStatus:  onlineStatus,
		}
		if !acct.LastActivity.IsZero() {
			last := acct.LastActivity
			entry.LastActivity = &last
		}
		grouped[status] = append(grouped[status], entry)
	}
	for _, entries := range grouped {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *server) handleCheckIn(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = models.CheckInOK
	}
	checkIn := models.CheckIn{
		ID:        uuid.New().String(),
		UserID:    acct.ID,
		Status:    req.Status,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	s.checkIns = append([]models.CheckIn{checkIn}, s.checkIns...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, checkIn)
}

func (s *server) handleCheckIns(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	own := make([]models.CheckIn, 0)
	for _, c := range s.checkIns {
		if c.UserID == acct.ID {
			own = append(own, c)
		}
	}
	writeJSON(w, http.StatusOK, own)
}

func (s *server) handleCreateVacation(w http.ResponseWriter, r *http.Request, acct *account) {
	var v models.Vacation
	if !decode(w, r, &v) {
		return
	}
	if v.StartDate == "" || v.EndDate == "" || v.Reason == "" {
		writeDetail(w, http.StatusBadRequest, "start_date, end_date and reason are required")
		return
	}
	v.ID = uuid.New().String()
	v.UserID = acct.ID
	v.Status = models.VacationPending
	v.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.vacations = append(s.vacations, v)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (s *server) handleVacations(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.Role == models.RoleAdmin {
		writeJSON(w, http.StatusOK, s.vacations)
		return
	}
	own := make([]models.Vacation, 0)
	for _, v := range s.vacations {
		if v.UserID == acct.ID {
			own = append(own, v)
		}
	}
	writeJSON(w, http.StatusOK, own)
}

func (s *server) handleCreateReport(w http.ResponseWriter, r *http.Request, acct *account) {
	var rep models.Report
	if !decode(w, r, &rep) {
		return
	}
	rep.ID = uuid.New().String()
	rep.AuthorID = acct.ID
	rep.AuthorName = acct.Username
	rep.Status = "draft"
	rep.CreatedAt = time.Now().UTC()
	rep.UpdatedAt = rep.CreatedAt

	s.mu.Lock()
	s.reports = append([]models.Report{rep}, s.reports...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rep)
}

func (s *server) handleUpdateReport(w http.ResponseWriter, r *http.Request, acct *account) {
	id := mux.Vars(r)["id"]
	var update models.Report
	if !decode(w, r, &update) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		rep := &s.reports[i]
		if rep.ID != id {
			continue
		}
		if rep.AuthorID != acct.ID && acct.Role != models.RoleAdmin {
			writeDetail(w, http.StatusForbidden, "Permission denied")
			return
		}
		if update.Title != "" {
			rep.Title = update.Title
		}
		if update.Content != "" {
			rep.Content = update.Content
		}
		if update.ShiftDate != "" {
			rep.ShiftDate = update.ShiftDate
		}
		if update.Status != "" {
			rep.Status = update.Status
		}
		rep.UpdatedAt = time.Now().UTC()
		writeJSON(w, http.StatusOK, *rep)
		return
	}
	writeDetail(w, http.StatusNotFound, "Report not found")
}

func (s *server) handleReports(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.Role == models.RoleAdmin {
		writeJSON(w, http.StatusOK, s.reports)
		return
	}
	own := make([]models.Report, 0)
	for _, rep := range s.reports {
		if rep.AuthorID == acct.ID {
			own = append(own, rep)
		}
	}
	writeJSON(w, http.StatusOK, own)
}

func (s *server) handleNotificationToken(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.log.Debug("notification token registered",
		zap.String("user_id", acct.ID),
		zap.Int("token_len", len(req.Token)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
