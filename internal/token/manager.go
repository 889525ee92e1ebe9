package token

import (
	"context"
	"sync"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"github.com/md-rashed-zaman/melinotify/internal/metrics"
)

// Refresher exchanges a refresh token for a fresh token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}

// Manager serves valid access tokens. The cache is scoped to one process;
// concurrent instances may each refresh redundantly, which the marketplace
// tolerates.
type Manager struct {
	store     Store
	refresher Refresher
	now       func() time.Time

	mu     sync.Mutex
	cached *Token
}

func NewManager(store Store, refresher Refresher) *Manager {
	return &Manager{
		store:     store,
		refresher: refresher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock. Tests only.
func (m *Manager) WithNow(now func() time.Time) *Manager {
	m.now = now
	return m
}

// AccessToken returns a token valid for at least RefreshSkew. A failed
// refresh leaves the previously cached token untouched, and no partial
// token is ever cached: the store write happens before the cache swap.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil {
		stored, err := m.store.Get(ctx)
		if err != nil {
			return "", fault.WrapAuth(err, "loading marketplace token")
		}
		m.cached = stored
	}

	if m.cached == nil {
		return "", fault.Auth("marketplace token not initialized")
	}

	if !m.cached.Expired(m.now()) {
		metrics.TokenCacheHitsTotal.Inc()
		return m.cached.AccessToken, nil
	}

	metrics.TokenRefreshTotal.Inc()
	refreshed, err := m.refresher.Refresh(ctx, m.cached.RefreshToken)
	if err != nil {
		return "", fault.WrapAuth(err, "marketplace token refresh failed")
	}
	if err := m.store.Save(ctx, refreshed); err != nil {
		return "", fault.WrapAuth(err, "persisting refreshed marketplace token")
	}
	m.cached = &refreshed

	return refreshed.AccessToken, nil
}
