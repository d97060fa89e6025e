package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
	"github.com/lborres/agora/pkg/crypto"
)

// CredentialsProvider is the name of email and password sign-in. It never
// goes through the OAuth bridge.
const CredentialsProvider = "credentials"

// ExternalProfile is what a provider tells us about the person signing in.
type ExternalProfile struct {
	ProviderAccountID string `json:"providerAccountId,omitempty"`
	Email             string `json:"email"`
	Name              string `json:"name,omitempty"`
	Avatar            string `json:"avatar,omitempty"`
}

// DefaultProviders lists the supported providers without credentials.
func DefaultProviders() []core.ProviderConfig {
	return []core.ProviderConfig{
		{
			Name:    "google",
			AuthURL: "https://accounts.google.com/o/oauth2/v2/auth",
			Scopes:  []string{"openid", "email", "profile"},
		},
		{
			Name:    "github",
			AuthURL: "https://github.com/login/oauth/authorize",
			Scopes:  []string{"read:user", "user:email"},
		},
		{
			Name:    "discord",
			AuthURL: "https://discord.com/oauth2/authorize",
			Scopes:  []string{"identify", "email"},
		},
	}
}

// Providers is the provider registry, resolved once from configuration.
type Providers struct {
	byName map[string]core.ProviderConfig
}

func NewProviders(configs []core.ProviderConfig) *Providers {
	p := &Providers{byName: make(map[string]core.ProviderConfig, len(configs))}
	for _, c := range configs {
		p.byName[strings.ToLower(c.Name)] = c
	}
	return p
}

// Lookup returns an enabled provider by name.
func (p *Providers) Lookup(name string) (core.ProviderConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == CredentialsProvider {
		return core.ProviderConfig{}, core.ErrUnsupportedProvider
	}
	c, ok := p.byName[name]
	if !ok {
		return core.ProviderConfig{}, core.ErrUnsupportedProvider
	}
	if !c.Enabled() {
		return core.ProviderConfig{}, core.ErrProviderDisabled
	}
	return c, nil
}

// Enabled returns the sorted names of providers with credentials.
func (p *Providers) Enabled() []string {
	names := make([]string, 0, len(p.byName))
	for name, c := range p.byName {
		if c.Enabled() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Status reports every known provider and whether it is enabled.
func (p *Providers) Status() map[string]bool {
	status := make(map[string]bool, len(p.byName))
	for name, c := range p.byName {
		status[name] = c.Enabled()
	}
	return status
}

// OAuthStart is the first leg of an external sign-in.
type OAuthStart struct {
	URL   string `json:"url"`
	State string `json:"-"`
}

type OAuthBridge struct {
	users     core.UserStorage
	hasher    crypto.PasswordHandler
	providers *Providers
	log       logging.Logger
	now       func() time.Time
}

func NewOAuthBridge(users core.UserStorage, hasher crypto.PasswordHandler, providers *Providers, log logging.Logger) *OAuthBridge {
	if log == nil {
		log = logging.NewNop()
	}
	return &OAuthBridge{
		users:     users,
		hasher:    hasher,
		providers: providers,
		log:       log,
		now:       time.Now,
	}
}

func (b *OAuthBridge) Providers() *Providers {
	return b.providers
}

// BeginSignIn builds the provider authorize URL. redirectURI is where the
// provider sends the browser back to.
func (b *OAuthBridge) BeginSignIn(provider, redirectURI string) (*OAuthStart, error) {
	c, err := b.providers.Lookup(provider)
	if err != nil {
		return nil, err
	}

	state, err := crypto.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	u, err := url.Parse(c.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("invalid authorize url for %s: %w", c.Name, err)
	}
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return &OAuthStart{URL: u.String(), State: state}, nil
}

// OnExternalSignIn finds or creates the local user for profile and returns
// the local identity. The external account id is never used as a local id.
func (b *OAuthBridge) OnExternalSignIn(ctx context.Context, provider string, profile ExternalProfile) (*core.Identity, error) {
	if _, err := b.providers.Lookup(provider); err != nil {
		return nil, err
	}

	email := core.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, core.ErrOAuthEmailRequired
	}

	user, err := b.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user, err = b.backfill(ctx, user, profile)
	case errors.Is(err, core.ErrUserNotFound):
		user, err = b.create(ctx, email, profile)
	}
	if err != nil {
		b.log.Error(ctx, "external sign-in rejected", "provider", provider, "error", err)
		return nil, fmt.Errorf("%w: %v", core.ErrOAuthRejected, err)
	}

	id := user.Identity()
	b.log.Info(ctx, "external sign-in", "provider", provider, "user_id", id.ID)
	return &id, nil
}

func (b *OAuthBridge) create(ctx context.Context, email string, profile ExternalProfile) (*core.User, error) {
	// Nobody knows this password; the account signs in through the
	// provider or after a reset.
	unusable, err := b.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := b.now()
	user := &core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &unusable,
		Name:         nonEmpty(profile.Name),
		Avatar:       nonEmpty(profile.Avatar),
		Role:         core.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = b.users.CreateUser(ctx, user)
	if errors.Is(err, core.ErrUserExists) {
		// lost a race with a concurrent first sign-in
		existing, err := b.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return b.backfill(ctx, existing, profile)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (b *OAuthBridge) backfill(ctx context.Context, user *core.User, profile ExternalProfile) (*core.User, error) {
	var name, avatar *string
	if user.Name == nil {
		name = nonEmpty(profile.Name)
	}
	if user.Avatar == nil {
		avatar = nonEmpty(profile.Avatar)
	}
	if name == nil && avatar == nil {
		return user, nil
	}
	return b.users.UpdateProfile(ctx, user.ID, name, avatar)
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
