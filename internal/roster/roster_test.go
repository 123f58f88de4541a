package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

func rosterServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/by-status", r.URL.Path)
		*hits++
		json.NewEncoder(w).Encode(map[string][]models.RosterEntry{
			models.StatusOnDuty: {
				{ID: "u-1", Username: "wagner", Status: models.StatusOnDuty, IsOnline: true, OnlineStatus: "Online"},
			},
			models.StatusBreak: {
				{ID: "u-2", Username: "meier", Status: models.StatusBreak, OnlineStatus: "Offline"},
			},
		})
	}))
}

func TestByStatusCachesResult(t *testing.T) {
	hits := 0
	srv := rosterServer(t, &hits)
	defer srv.Close()

	s := New(api.New(srv.URL), time.Minute)
	ctx := context.Background()

	first, err := s.ByStatus(ctx)
	require.NoError(t, err)
	require.Len(t, first[models.StatusOnDuty], 1)
	assert.Equal(t, "wagner", first[models.StatusOnDuty][0].Username)

	second, err := s.ByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits, "second read must come from cache")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	hits := 0
	srv := rosterServer(t, &hits)
	defer srv.Close()

	s := New(api.New(srv.URL), time.Minute)
	ctx := context.Background()

	_, err := s.ByStatus(ctx)
	require.NoError(t, err)
	s.Invalidate()
	_, err = s.ByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestByStatusErrorNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	}))
	defer srv.Close()

	s := New(api.New(srv.URL), time.Minute)
	_, err := s.ByStatus(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))

	// A later call still reaches the backend instead of a poisoned cache.
	_, err = s.ByStatus(context.Background())
	require.Error(t, err)
}
