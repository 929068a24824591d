package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of an access token without verifying its signature.
// The console never holds the signing key; the value is only used to size storage TTLs.
// Opaque (non-JWT) tokens report false.
func ExpiresAt(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TTL returns how long a stored token stays useful: until exp plus the refresh window,
// since an expired token is still the credential presented to /auth/refresh.
// Opaque tokens get the window alone.
func TTL(raw string, now time.Time, window time.Duration) time.Duration {
	exp, ok := ExpiresAt(raw)
	if !ok {
		return window
	}
	if left := exp.Sub(now); left > 0 {
		return left + window
	}
	return window
}
