package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
)

type memStore struct {
	token    *Token
	getErr   error
	saveErr  error
	saves    int
	getCalls int
}

func (s *memStore) Get(context.Context) (*Token, error) {
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.token == nil {
		return nil, nil
	}
	copied := *s.token
	return &copied, nil
}

func (s *memStore) Save(_ context.Context, t Token) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.token = &t
	return nil
}

type fakeRefresher struct {
	token Token
	err   error
	calls int
	got   string
}

func (r *fakeRefresher) Refresh(_ context.Context, refreshToken string) (Token, error) {
	r.calls++
	r.got = refreshToken
	if r.err != nil {
		return Token{}, r.err
	}
	return r.token, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestAccessTokenNotInitialized(t *testing.T) {
	m := NewManager(&memStore{}, &fakeRefresher{}).WithNow(fixedNow)
	if _, err := m.AccessToken(context.Background()); !fault.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestAccessTokenValidFromStore(t *testing.T) {
	store := &memStore{token: &Token{
		AccessToken:  "cur",
		RefreshToken: "ref",
		ExpiresAt:    fixedNow().Add(2 * time.Hour),
	}}
	refresher := &fakeRefresher{}
	m := NewManager(store, refresher).WithNow(fixedNow)

	got, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cur" {
		t.Fatalf("expected access token cur, got %q", got)
	}
	if refresher.calls != 0 {
		t.Fatalf("valid token must not trigger refresh")
	}

	// Second call is served from the in-memory cache.
	if _, err := m.AccessToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.getCalls != 1 {
		t.Fatalf("expected 1 store read, got %d", store.getCalls)
	}
}

func TestAccessTokenRefreshesExpired(t *testing.T) {
	store := &memStore{token: &Token{
		AccessToken:  "old",
		RefreshToken: "ref-old",
		ExpiresAt:    fixedNow().Add(30 * time.Second),
	}}
	refresher := &fakeRefresher{token: Token{
		AccessToken:  "new",
		RefreshToken: "ref-new",
		ExpiresAt:    fixedNow().Add(6 * time.Hour),
	}}
	m := NewManager(store, refresher).WithNow(fixedNow)

	got, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "new" {
		t.Fatalf("expected refreshed token, got %q", got)
	}
	if refresher.got != "ref-old" {
		t.Fatalf("refresh must use the stored refresh token, got %q", refresher.got)
	}
	if store.saves != 1 || store.token.AccessToken != "new" {
		t.Fatalf("refreshed token must be persisted, got %+v", store.token)
	}
}

func TestFailedRefreshRetainsPreviousToken(t *testing.T) {
	store := &memStore{token: &Token{
		AccessToken:  "old",
		RefreshToken: "ref-old",
		ExpiresAt:    fixedNow().Add(10 * time.Second),
	}}
	refresher := &fakeRefresher{err: errors.New("oauth endpoint down")}
	m := NewManager(store, refresher).WithNow(fixedNow)

	if _, err := m.AccessToken(context.Background()); !fault.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}

	// The cached pair survives a failed attempt; a later refresh succeeds
	// with the same refresh token.
	refresher.err = nil
	refresher.token = Token{AccessToken: "new", RefreshToken: "ref-new", ExpiresAt: fixedNow().Add(time.Hour)}
	got, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "new" || refresher.got != "ref-old" {
		t.Fatalf("expected recovery with retained refresh token, got %q via %q", got, refresher.got)
	}
}

func TestFailedSaveDiscardsRefreshAttempt(t *testing.T) {
	store := &memStore{
		token: &Token{
			AccessToken:  "old",
			RefreshToken: "ref-old",
			ExpiresAt:    fixedNow().Add(10 * time.Second),
		},
		saveErr: errors.New("write timeout"),
	}
	refresher := &fakeRefresher{token: Token{
		AccessToken:  "new",
		RefreshToken: "ref-new",
		ExpiresAt:    fixedNow().Add(time.Hour),
	}}
	m := NewManager(store, refresher).WithNow(fixedNow)

	if _, err := m.AccessToken(context.Background()); !fault.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}

	// The unpersisted pair must not be cached.
	store.saveErr = nil
	if _, err := m.AccessToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.got != "ref-old" {
		t.Fatalf("second attempt must reuse the old refresh token, got %q", refresher.got)
	}
}
