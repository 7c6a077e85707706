package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims returns the bearer token's claims without verifying the signature.
// The client never validates tokens, that is the server's job; the claims
// are used for logging and for the ExpiresSoon hint only.
func (m *Manager) Claims() (jwt.MapClaims, error) {
	token, ok := m.BearerToken()
	if !ok {
		return nil, errors.New("[Claims] no token present")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "[Claims] parse token")
	}
	return claims, nil
}

// ExpiresSoon reports whether the token expires within d. A token without an
// exp claim, or one that cannot be parsed, reports false; requests are never
// rejected client-side on expiry grounds.
func (m *Manager) ExpiresSoon(d time.Duration) bool {
	token, ok := m.BearerToken()
	if !ok {
		return false
	}
	exp, err := m.expiry(token)
	if err != nil || exp.IsZero() {
		return false
	}
	return exp.Before(m.nowFunc().Add(d))
}

func (m *Manager) expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, err
	}
	return exp.Time, nil
}
