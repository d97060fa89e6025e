package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
)

// SessionManager issues and verifies stateless HS256 session tokens.
type SessionManager struct {
	config  core.SessionConfig
	secret  []byte
	revoked core.RevocationCache // optional, nil disables advisory revocation
	log     logging.Logger
	now     func() time.Time
}

func NewSessionManager(config core.SessionConfig, secret []byte, revoked core.RevocationCache, log logging.Logger) *SessionManager {
	if config.MaxAge == 0 {
		config.MaxAge = core.DefaultSessionConfig().MaxAge
	}
	if config.Issuer == "" {
		config.Issuer = core.DefaultSessionConfig().Issuer
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &SessionManager{
		config:  config,
		secret:  secret,
		revoked: revoked,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (sm *SessionManager) WithClock(now func() time.Time) *SessionManager {
	sm.now = now
	return sm
}

func (sm *SessionManager) MaxAge() time.Duration {
	return sm.config.MaxAge
}

// Issue signs a new token for id that expires MaxAge from now.
func (sm *SessionManager) Issue(id core.Identity) (*core.IssuedSession, error) {
	if id.ID == "" || id.Email == "" || !id.Role.Valid() {
		return nil, core.ErrIdentityRequired
	}

	now := sm.now()
	claims := &core.SessionClaims{
		Version: core.SessionClaimsVersion,
		Email:   id.Email,
		Name:    id.Name,
		Role:    id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			Issuer:    sm.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.config.MaxAge)),
		},
	}

	token, err := sm.Sign(claims)
	if err != nil {
		return nil, err
	}
	return &core.IssuedSession{Token: token, Claims: claims}, nil
}

// Sign serializes claims as a compact HS256 token.
func (sm *SessionManager) Sign(claims *core.SessionClaims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return token, nil
}

// Verify checks the signature before anything else, so a tampered token is
// Invalid even when its claims are also stale.
func (sm *SessionManager) Verify(token string) core.SessionResult {
	if token == "" {
		return core.SessionResult{State: core.SessionAbsent}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(sm.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(sm.config.Issuer),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)

	claims := &core.SessionClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return sm.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.SessionResult{State: core.SessionExpired}
	default:
		return core.SessionResult{State: core.SessionInvalid}
	}

	if claims.Version != core.SessionClaimsVersion ||
		claims.Subject == "" ||
		!claims.Role.Valid() ||
		claims.IssuedAt == nil {
		return core.SessionResult{State: core.SessionInvalid}
	}

	if sm.isRevoked(claims) {
		return core.SessionResult{State: core.SessionExpired}
	}

	return core.SessionResult{State: core.SessionValid, Claims: claims}
}

func (sm *SessionManager) isRevoked(claims *core.SessionClaims) bool {
	if sm.revoked == nil {
		return false
	}
	cutoff, err := sm.revoked.Get(claims.Subject)
	if err != nil {
		return false
	}
	// iat has second precision, so a token from the cutoff's second is
	// treated as revoked.
	return claims.IssuedAt == nil || !claims.IssuedAt.Time.After(cutoff)
}

// Refresh merges newer identity fields into claims. Empty fields in id
// leave the existing value in place. Registered claims are carried over
// unchanged; re-sign or re-issue to extend the lifetime.
func (sm *SessionManager) Refresh(claims *core.SessionClaims, id core.Identity) *core.SessionClaims {
	if claims == nil {
		return nil
	}

	merged := *claims
	if id.ID != "" {
		merged.Subject = id.ID
	}
	if id.Email != "" {
		merged.Email = id.Email
	}
	if id.Name != "" {
		merged.Name = id.Name
	}
	if id.Role.Valid() {
		merged.Role = id.Role
	}
	return &merged
}

// Revoke makes every token issued to userID up to the current second
// verify as Expired.
// It is advisory: without a revocation cache it is a no-op.
func (sm *SessionManager) Revoke(ctx context.Context, userID string) error {
	if sm.revoked == nil {
		return nil
	}
	if userID == "" {
		return core.ErrUserNotFound
	}
	if err := sm.revoked.Set(userID, sm.now().Truncate(time.Second)); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	sm.log.Debug(ctx, "sessions revoked", "user_id", userID)
	return nil
}
