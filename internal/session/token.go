package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired checks the exp claim of a stored bearer token without verifying
// its signature. Verification is the backend's job; this only avoids
// sending requests that are guaranteed a 401. Tokens that cannot be parsed
// or carry no exp claim are treated as live and left for the backend to
// judge.
func Expired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now)
}
