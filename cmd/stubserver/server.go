package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stadtwache/internal/models"
)

const tokenTTL = 7 * 24 * time.Hour

// onlineWindow mirrors the backend's two-minute activity threshold.
const onlineWindow = 2 * time.Minute

type account struct {
	models.User
	PasswordHash string
	LastActivity time.Time
}

type server struct {
	secret []byte
	log    *zap.Logger

	mu         sync.Mutex
	users      map[string]*account // by id
	byEmail    map[string]string   // email -> id
	checkIns   []models.CheckIn
	vacations  []models.Vacation
	reports    []models.Report
	broadcasts []models.EmergencyAlert
}

func newServer(secret []byte, log *zap.Logger) *server {
	return &server{
		secret:  secret,
		log:     log,
		users:   make(map[string]*account),
		byEmail: make(map[string]string),
	}
}

// seedAdmin creates the initial admin account so a fresh stub is usable.
func (s *server) seedAdmin(password string) {
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Fatal("seed admin", zap.Error(err))
	}
	admin := &account{
		User: models.User{
			ID:        uuid.New().String(),
			Email:     "admin@stadtwache.de",
			Username:  "admin",
			Role:      models.RoleAdmin,
			Status:    models.StatusOnDuty,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
		PasswordHash: string(hash),
	}
	s.users[admin.ID] = admin
	s.byEmail[admin.Email] = admin.ID
	s.log.Info("seeded admin account", zap.String("email", admin.Email))
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	}).Methods("GET")

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/api/auth/me", s.auth(s.handleMe)).Methods("GET")
	r.HandleFunc("/api/auth/profile", s.auth(s.handleProfile)).Methods("PUT")

	// Emergency broadcast accepts unauthenticated requests so fallback
	// alerts still reach the team after a session problem.
	r.HandleFunc("/api/emergency/broadcast", s.handleBroadcast).Methods("POST")

	r.HandleFunc("/api/users/by-status", s.auth(s.handleUsersByStatus)).Methods("GET")
	r.HandleFunc("/api/checkin", s.auth(s.handleCheckIn)).Methods("POST")
	r.HandleFunc("/api/checkins", s.auth(s.handleCheckIns)).Methods("GET")
	r.HandleFunc("/api/vacations", s.auth(s.handleCreateVacation)).Methods("POST")
	r.HandleFunc("/api/vacations", s.auth(s.handleVacations)).Methods("GET")
	r.HandleFunc("/api/reports", s.auth(s.handleCreateReport)).Methods("POST")
	r.HandleFunc("/api/reports/{id}", s.auth(s.handleUpdateReport)).Methods("PUT")
	r.HandleFunc("/api/reports", s.auth(s.handleReports)).Methods("GET")
	r.HandleFunc("/api/user/notification-token", s.auth(s.handleNotificationToken)).Methods("POST")
	return r
}

// ---- token handling ----

func (s *server) issueToken(acct *account) (string, error) {
	claims := jwt.MapClaims{
		"sub":     acct.Email,
		"user_id": acct.ID,
		"role":    acct.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *server) userFromToken(r *http.Request) *account {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	id, _ := claims["user_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[id]
	if !ok {
		return nil
	}
	acct.LastActivity = time.Now().UTC()
	return acct
}

type authedHandler func(w http.ResponseWriter, r *http.Request, acct *account)

func (s *server) auth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct := s.userFromToken(r)
		if acct == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r, acct)
	}
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
