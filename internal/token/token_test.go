package token

import (
	"testing"
	"time"
)

func TestExpiredBoundary(t *testing.T) {
	now := time.UnixMilli(1_000_000)

	// Expiring within the 60s skew counts as expired.
	within := Token{ExpiresAt: time.UnixMilli(1_020_000)}
	if !within.Expired(now) {
		t.Fatalf("token expiring in 20s must be treated as expired")
	}

	beyond := Token{ExpiresAt: time.UnixMilli(1_080_000)}
	if beyond.Expired(now) {
		t.Fatalf("token expiring in 80s must be treated as valid")
	}

	// Exactly at the skew boundary counts as expired.
	exact := Token{ExpiresAt: now.Add(RefreshSkew)}
	if !exact.Expired(now) {
		t.Fatalf("token exactly at the skew boundary must be treated as expired")
	}
}
