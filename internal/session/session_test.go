package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "wagner@stadtwache.de", "exp": exp.Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Expired(mintToken(t, now.Add(time.Hour)), now))
	assert.True(t, Expired(mintToken(t, now.Add(-time.Hour)), now))
	assert.False(t, Expired("not-a-jwt", now), "unparsable tokens are left to the backend")
}

func TestLoginPersistsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Token{
			AccessToken: mintToken(t, time.Now().Add(time.Hour)),
			TokenType:   "bearer",
			User:        models.User{ID: "u-1", Username: "wagner", Role: models.RolePolice},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	client := api.New(srv.URL)
	m := NewManager(dir, client, nil)

	sess, err := m.Login(context.Background(), "wagner@stadtwache.de", "geheim")
	require.NoError(t, err)
	assert.Equal(t, "wagner", sess.User.Username)
	assert.Equal(t, sess.Token, client.BearerToken())

	info, err := os.Stat(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestBootstrapNoSession(t *testing.T) {
	m := NewManager(t.TempDir(), api.New("http://localhost:0"), nil)
	_, err := m.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestBootstrapExpiredTokenClearsSession(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, api.New("http://localhost:0"), nil)
	require.NoError(t, m.save(&Session{
		Token:   mintToken(t, time.Now().Add(-time.Minute)),
		User:    &models.User{ID: "u-1"},
		SavedAt: time.Now(),
	}))

	_, err := m.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = os.Stat(filepath.Join(dir, "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestBootstrapRejectedTokenClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	client := api.New(srv.URL)
	m := NewManager(dir, client, nil)
	require.NoError(t, m.save(&Session{
		Token:   mintToken(t, time.Now().Add(time.Hour)),
		User:    &models.User{ID: "u-1"},
		SavedAt: time.Now(),
	}))

	_, err := m.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, client.BearerToken())
	_, err = os.Stat(filepath.Join(dir, "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestBootstrapKeepsIdentityWhenBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	dir := t.TempDir()
	client := api.New(srv.URL, api.WithTimeout(time.Second))
	m := NewManager(dir, client, nil)
	token := mintToken(t, time.Now().Add(time.Hour))
	require.NoError(t, m.save(&Session{
		Token:   token,
		User:    &models.User{ID: "u-1", Username: "wagner"},
		SavedAt: time.Now(),
	}))

	sess, err := m.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wagner", sess.User.Username)
	assert.Equal(t, token, client.BearerToken())
}

func TestBootstrapRefreshesUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.User{ID: "u-1", Username: "wagner", Rank: "Hauptkommissar"})
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), api.New(srv.URL), nil)
	require.NoError(t, m.save(&Session{
		Token:   mintToken(t, time.Now().Add(time.Hour)),
		User:    &models.User{ID: "u-1", Username: "wagner"},
		SavedAt: time.Now(),
	}))

	sess, err := m.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hauptkommissar", sess.User.Rank)
}

func TestLogout(t *testing.T) {
	dir := t.TempDir()
	client := api.New("http://localhost:0")
	client.SetToken("tok")
	m := NewManager(dir, client, nil)
	require.NoError(t, m.save(&Session{Token: "tok", SavedAt: time.Now()}))

	require.NoError(t, m.Logout())
	assert.Empty(t, client.BearerToken())
	_, err := os.Stat(filepath.Join(dir, "session.json"))
	assert.True(t, os.IsNotExist(err))

	// Logging out twice is fine.
	require.NoError(t, m.Logout())
}
