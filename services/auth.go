package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
	"github.com/lborres/agora/pkg/crypto"
)

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type AuthService struct {
	users             core.UserStorage
	hasher            crypto.PasswordHandler
	sessions          *SessionManager
	log               logging.Logger
	minPasswordLength int
	now               func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users core.UserStorage, hasher crypto.PasswordHandler, sessions *SessionManager, minPasswordLength int, log logging.Logger) *AuthService {
	if minPasswordLength <= 0 {
		minPasswordLength = core.DefaultResetConfig().MinPasswordLength
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &AuthService{
		users:             users,
		hasher:            hasher,
		sessions:          sessions,
		log:               log,
		minPasswordLength: minPasswordLength,
		now:               time.Now,
	}
}

// Authenticate returns the identity for a matching email and password, or
// nil. It never returns an error: every failure, including store errors,
// is a nil identity.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) *core.Identity {
	email = core.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, core.ErrUserNotFound) {
			s.log.Error(ctx, "credential lookup failed", "error", err)
		}
		s.burnVerify(password)
		return nil
	}
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		s.burnVerify(password)
		return nil
	}

	if !crypto.Matches(s.hasher, password, *user.PasswordHash) {
		return nil
	}

	id := user.Identity()
	return &id
}

// burnVerify spends roughly one hash verification so unknown accounts take
// about as long to reject as wrong passwords.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	_ = crypto.Matches(s.hasher, password, s.dummyHash)
}

// SignIn authenticates credentials and issues a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*core.IssuedSession, error) {
	if strings.TrimSpace(email) == "" {
		return nil, core.ErrEmailRequired
	}
	if password == "" {
		return nil, core.ErrPasswordRequired
	}

	id := s.Authenticate(ctx, email, password)
	if id == nil {
		return nil, core.ErrInvalidCredentials
	}

	issued, err := s.sessions.Issue(*id)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.Info(ctx, "user signed in", "user_id", id.ID)
	return issued, nil
}

// SignUp registers a credential account with role USER and signs it in.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*core.User, *core.IssuedSession, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePassword(input.Password, s.minPasswordLength); err != nil {
		return nil, nil, err
	}

	// Step 1: Check if user already exists
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, nil, core.ErrUserExists
	}

	// Step 2: Hash the password
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 3: Create the user
	now := s.now()
	user := &core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &hash,
		Role:         core.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = &name
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrUserExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Step 4: Create a session for the new user
	issued, err := s.sessions.Issue(user.Identity())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info(ctx, "user signed up", "user_id", user.ID)
	return user, issued, nil
}

// GetSession decodes token into a session view. The error is the sentinel
// for the token's state.
func (s *AuthService) GetSession(ctx context.Context, token string) (*core.SessionView, error) {
	result := s.sessions.Verify(token)
	if err := result.Err(); err != nil {
		return nil, err
	}
	return core.NewSessionView(result.Claims), nil
}

func validateEmail(raw string) (string, error) {
	email := core.NormalizeEmail(raw)
	if email == "" {
		return "", core.ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", core.ErrInvalidEmail
	}
	return email, nil
}

func validatePassword(password string, minLength int) error {
	switch {
	case password == "":
		return core.ErrPasswordRequired
	case len([]rune(password)) < minLength:
		return core.ErrPasswordTooShort
	case len(password) > maxPasswordBytes:
		return core.ErrPasswordTooLong
	}
	return nil
}
