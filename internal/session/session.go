package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

var (
	// ErrNoSession is returned when no session is persisted on this device.
	ErrNoSession = errors.New("no stored session")
	// ErrSessionExpired is returned when the stored token is no longer valid.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the device-local identity: the bearer token and the user it
// belongs to. Read-only to everything outside this package.
type Session struct {
	Token   string       `json:"access_token"`
	User    *models.User `json:"user"`
	SavedAt time.Time    `json:"saved_at"`
}

// Manager owns the persisted session file and keeps the API client's
// bearer token in sync with it.
type Manager struct {
	dir    string
	client *api.Client
	log    *zap.Logger
}

// NewManager creates a session manager storing its state under dataDir.
func NewManager(dataDir string, client *api.Client, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{dir: dataDir, client: client, log: log}
}

func (m *Manager) path() string {
	return filepath.Join(m.dir, "session.json")
}

// Login authenticates against the backend, installs the token on the API
// client and persists the session for the next launch.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	token, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess := &Session{Token: token.AccessToken, User: &token.User, SavedAt: time.Now().UTC()}
	m.client.SetToken(sess.Token)
	if err := m.save(sess); err != nil {
		// The login itself worked; a persistence problem only costs the
		// next launch a fresh login.
		m.log.Warn("could not persist session", zap.Error(err))
	}
	m.log.Info("logged in", zap.String("user", token.User.Username), zap.String("role", token.User.Role))
	return sess, nil
}

// Bootstrap restores a persisted session and revalidates it against
// /api/auth/me. An expired or rejected token clears the stored session.
func (m *Manager) Bootstrap(ctx context.Context) (*Session, error) {
	sess, err := m.load()
	if err != nil {
		return nil, err
	}
	if Expired(sess.Token, time.Now()) {
		m.log.Info("stored token expired, clearing session")
		m.clear()
		return nil, ErrSessionExpired
	}

	m.client.SetToken(sess.Token)
	user, err := m.client.Me(ctx)
	if err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			m.clear()
			m.client.ClearToken()
			return nil, ErrSessionExpired
		}
		// Backend unreachable: keep the stored session so the device can
		// still stamp outgoing alerts with its identity.
		m.log.Warn("session validation unavailable, continuing with stored identity", zap.Error(err))
		return sess, nil
	}
	sess.User = user
	if err := m.save(sess); err != nil {
		m.log.Warn("could not refresh stored session", zap.Error(err))
	}
	return sess, nil
}

// Logout clears the persisted session and the client token.
func (m *Manager) Logout() error {
	m.client.ClearToken()
	return m.clear()
}

func (m *Manager) save(sess *Session) error {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path(), data, 0o600)
}

func (m *Manager) load() (*Session, error) {
	data, err := os.ReadFile(m.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.Token == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (m *Manager) clear() error {
	err := os.Remove(m.path())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
