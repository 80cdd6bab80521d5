// Package auth provides the bearer credential threaded explicitly
// into the broker connection and REST calls. The credential is never
// read from ambient storage; callers construct one and pass it down.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyToken is returned when a credential is built from an empty token.
var ErrEmptyToken = errors.New("auth: token is empty")

// Credential carries the bearer token attached to the broker
// handshake, every published frame, and every REST request.
type Credential struct {
	token string
}

// NewCredential builds a credential from a raw bearer token. A
// leading "Bearer " prefix is stripped so both header values and bare
// tokens are accepted.
func NewCredential(token string) (*Credential, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &Credential{token: token}, nil
}

// Token returns the raw bearer token.
func (c *Credential) Token() string {
	return c.token
}

// AuthorizationHeader returns the value for an Authorization header.
func (c *Credential) AuthorizationHeader() string {
	return "Bearer " + c.token
}

// ExpiresAt returns the token's expiry claim if the token is a JWT
// carrying one. The token is parsed without signature verification;
// the server remains the authority, this only lets the client warn
// before an expiry it can predict. Returns false when the token is
// not a JWT or carries no expiry.
func (c *Credential) ExpiresAt() (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(c.token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiresWithin reports whether the token expires within d. Tokens
// without a readable expiry report false.
func (c *Credential) ExpiresWithin(d time.Duration) bool {
	exp, ok := c.ExpiresAt()
	if !ok {
		return false
	}
	return time.Until(exp) <= d
}
