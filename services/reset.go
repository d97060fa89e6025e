package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
	"github.com/lborres/agora/pkg/crypto"
)

// ResetRequestedMessage is returned for every well-formed reset request,
// whether or not the account exists.
const ResetRequestedMessage = "If this email exists in our system, you will receive a password reset email."

const ResetCompletedMessage = "Password reset successfully"

type ResetRequestResult struct {
	Message      string `json:"message"`
	DevResetLink string `json:"devResetLink,omitempty"`
}

type ResetService struct {
	users    core.UserStorage
	hasher   crypto.PasswordHandler
	mailer   core.Mailer // optional
	sessions *SessionManager
	config   core.ResetConfig
	log      logging.Logger
	now      func() time.Time
}

func NewResetService(users core.UserStorage, hasher crypto.PasswordHandler, mailer core.Mailer, sessions *SessionManager, config core.ResetConfig, log logging.Logger) *ResetService {
	defaults := core.DefaultResetConfig()
	if config.TokenTTL == 0 {
		config.TokenTTL = defaults.TokenTTL
	}
	if config.MinPasswordLength == 0 {
		config.MinPasswordLength = defaults.MinPasswordLength
	}
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &ResetService{
		users:    users,
		hasher:   hasher,
		mailer:   mailer,
		sessions: sessions,
		config:   config,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *ResetService) WithClock(now func() time.Time) *ResetService {
	s.now = now
	return s
}

// ResetURL is the page a reset token is redeemed on.
func (s *ResetService) ResetURL(token string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/reset-password/" + token
}

// RequestReset starts a reset for email. Only a missing email is an error;
// unknown accounts, store failures and mail failures all produce the same
// generic result.
func (s *ResetService) RequestReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return nil, core.ErrEmailRequired
	}

	result := &ResetRequestResult{Message: ResetRequestedMessage}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, core.ErrUserNotFound) {
			s.log.Error(ctx, "reset lookup failed", "error", err)
		}
		return result, nil
	}

	pair, err := crypto.GenerateHashedToken()
	if err != nil {
		s.log.Error(ctx, "reset token generation failed", "user_id", user.ID, "error", err)
		return result, nil
	}

	expires := s.now().Add(s.config.TokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, pair.Hash, expires); err != nil {
		s.log.Error(ctx, "reset token not stored", "user_id", user.ID, "error", err)
		return result, nil
	}

	link := s.ResetURL(pair.Token)
	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
			s.log.Error(ctx, "reset email not sent", "user_id", user.ID, "error", err)
		}
	}

	if s.config.ExposeDevLinks {
		s.log.Info(ctx, "reset link issued", "user_id", user.ID, "link", link)
		result.DevResetLink = link
	}
	return result, nil
}

// RedeemReset consumes token and sets newPassword. The token check and the
// password write are one conditional update, so a token succeeds at most
// once. Sessions issued before the reset are then revoked on a best-effort
// basis.
func (s *ResetService) RedeemReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.ErrTokenRequired
	}
	if err := validatePassword(newPassword, s.config.MinPasswordLength); err != nil {
		if errors.Is(err, core.ErrPasswordRequired) {
			return core.ErrPasswordTooShort
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.users.RedeemResetToken(ctx, crypto.HashToken(token), hash, s.now())
	if err != nil {
		if errors.Is(err, core.ErrInvalidResetToken) {
			return core.ErrInvalidResetToken
		}
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}

	s.log.Info(ctx, "password reset", "user_id", userID)

	if s.sessions != nil {
		if err := s.sessions.Revoke(ctx, userID); err != nil {
			s.log.Warn(ctx, "sessions not revoked after reset", "user_id", userID, "error", err)
		}
	}
	return nil
}
