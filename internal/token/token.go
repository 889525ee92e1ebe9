// Package token owns the marketplace OAuth credential: one durable record,
// one in-memory cache per process, refresh on demand.
package token

import "time"

// RefreshSkew is how long before the recorded expiry a token is already
// treated as expired, so a request never leaves with a token about to die
// mid-flight.
const RefreshSkew = 60 * time.Second

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the token is within RefreshSkew of its expiry.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt.Add(-RefreshSkew))
}
