// Package token reads the expiry of a backend-issued bearer token.
//
// The signature is never checked here. The backend owns signing keys and
// is the only party that can say a token is genuine; this package only
// answers "when does it claim to expire", which is enough to decide whether
// a backend round trip is worth making.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DukeRupert/pbgate/internal/domain"
)

// RefreshWindow is how close to expiry a token must be before the gate
// refreshes it proactively.
const RefreshWindow = 300 * time.Second

// Inspection is the local reading of a token.
type Inspection struct {
	State     domain.TokenState
	ExpiresAt time.Time     // zero unless the exp claim decoded
	Remaining time.Duration // ExpiresAt - now; negative once expired
}

var parser = jwt.NewParser()

// Inspect classifies raw relative to now without any network call.
//
//   - "" is Absent
//   - anything that does not decode as a JWT, or lacks exp, is Malformed
//   - remaining <= 0 is Expired
//   - remaining < RefreshWindow is ExpiringSoon
//   - otherwise Valid
func Inspect(raw string, now time.Time) Inspection {
	if raw == "" {
		return Inspection{State: domain.TokenAbsent}
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Inspection{State: domain.TokenMalformed}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Inspection{State: domain.TokenMalformed}
	}

	remaining := exp.Time.Sub(now)
	in := Inspection{ExpiresAt: exp.Time, Remaining: remaining}
	switch {
	case remaining <= 0:
		in.State = domain.TokenExpired
	case remaining < RefreshWindow:
		in.State = domain.TokenExpiringSoon
	default:
		in.State = domain.TokenValid
	}
	return in
}
