package roster

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
)

const cacheKey = "users_by_status"

// Service serves the duty roster (users grouped by status) with a short
// local cache, so a dashboard refreshing every few seconds does not turn
// into a request per refresh.
type Service struct {
	client *api.Client
	cache  *gocache.Cache
	ttl    time.Duration
}

// New builds a roster service. A non-positive ttl falls back to 30s.
func New(client *api.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		client: client,
		cache:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

// ByStatus returns the roster, from cache when fresh.
func (s *Service) ByStatus(ctx context.Context) (map[string][]models.RosterEntry, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(map[string][]models.RosterEntry), nil
	}
	grouped, err := s.client.UsersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey, grouped, s.ttl)
	return grouped, nil
}

// Invalidate drops the cached roster, forcing the next ByStatus to hit
// the backend. Called after anything that changes a status.
func (s *Service) Invalidate() {
	s.cache.Delete(cacheKey)
}
