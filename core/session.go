package core

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaimsVersion is bumped whenever the claim layout changes in a way
// older verifiers cannot read.
const SessionClaimsVersion = 1

// Identity is the minimal authenticated-user record passed from
// authentication to session issuance. It is the only shape a session
// token may embed.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// SessionClaims is the payload of a signed session token.
type SessionClaims struct {
	Version int    `json:"ver"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Role    Role   `json:"role"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) Identity() Identity {
	return Identity{
		ID:    c.Subject,
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
	}
}

// SessionState is the outcome of verifying a session token.
type SessionState int

const (
	SessionAbsent SessionState = iota
	SessionValid
	SessionExpired
	SessionInvalid
)

func (s SessionState) String() string {
	switch s {
	case SessionAbsent:
		return "absent"
	case SessionValid:
		return "valid"
	case SessionExpired:
		return "expired"
	case SessionInvalid:
		return "invalid"
	}
	return "unknown"
}

// SessionResult carries the verified claims when State is SessionValid.
type SessionResult struct {
	State  SessionState
	Claims *SessionClaims
}

// Err maps a non-valid state to its sentinel error.
func (r SessionResult) Err() error {
	switch r.State {
	case SessionValid:
		return nil
	case SessionAbsent:
		return ErrMissingSession
	case SessionExpired:
		return ErrSessionExpired
	default:
		return ErrInvalidToken
	}
}

// IssuedSession is a freshly signed token and the claims inside it.
type IssuedSession struct {
	Token  string
	Claims *SessionClaims
}

// SessionView is the decoded session handed back to clients
type SessionView struct {
	User      Identity  `json:"user"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewSessionView(c *SessionClaims) *SessionView {
	view := &SessionView{User: c.Identity()}
	if c.IssuedAt != nil {
		view.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		view.ExpiresAt = c.ExpiresAt.Time
	}
	return view
}

type SessionConfig struct {
	MaxAge time.Duration
	Issuer string
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge: 30 * 24 * time.Hour,
		Issuer: "agora",
	}
}
