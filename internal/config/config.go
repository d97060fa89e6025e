// Package config assembles server settings from defaults, an optional
// .env file, environment variables and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lborres/agora/core"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

var ErrUnknownEnvironment = errors.New("unknown environment")

// Provider holds OAuth client credentials for one provider.
type Provider struct {
	ClientID     string
	ClientSecret string
}

// Config holds runtime settings for the forum auth server.
//
// Secret signs session tokens (HS256) and must be at least 32 bytes.
// ExposeResetLinks returns raw reset links from the reset endpoint; it is
// on by default only in development without a mail credential.
type Config struct {
	Addr             string
	DatabaseDSN      string
	Secret           string
	Environment      string
	BaseURL          string
	ResendAPIKey     string
	ResendFrom       string
	SecureCookies    bool
	CookieDomain     string
	ExposeResetLinks bool
	LogLevel         string
	LogDev           bool
	Google           Provider
	GitHub           Provider
	Discord          Provider

	// set when the environment pinned a value that is otherwise derived
	secureCookiesSet    bool
	exposeResetLinksSet bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is empty on purpose; the server refuses to start without one.
func (c *Config) LoadDefaults() {
	c.Addr = ":3000"
	c.DatabaseDSN = ""
	c.Environment = EnvDevelopment
	c.BaseURL = "http://localhost:3000"
	c.ResendFrom = "onboarding@resend.dev"
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then .env (best effort), then the process
// environment, then flags from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.applyEnv(os.LookupEnv)
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) bool {
		v, ok := lookup(key)
		if !ok || v == "" {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false
		}
		*dst = b
		return true
	}

	str("ADDR", &c.Addr)
	str("DATABASE_URL", &c.DatabaseDSN)
	str("AUTH_SECRET", &c.Secret)
	str("APP_ENV", &c.Environment)
	str("NEXTAUTH_URL", &c.BaseURL)
	str("BASE_URL", &c.BaseURL)
	str("RESEND_API_KEY", &c.ResendAPIKey)
	str("RESEND_FROM_EMAIL", &c.ResendFrom)
	str("COOKIE_DOMAIN", &c.CookieDomain)
	str("LOG_LEVEL", &c.LogLevel)
	str("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("DISCORD_CLIENT_ID", &c.Discord.ClientID)
	str("DISCORD_CLIENT_SECRET", &c.Discord.ClientSecret)
	if v, ok := lookup("LOG_DEV"); ok {
		c.LogDev = v == "1"
	}
	c.secureCookiesSet = boolean("SECURE_COOKIES", &c.SecureCookies)
	c.exposeResetLinksSet = boolean("EXPOSE_RESET_LINKS", &c.ExposeResetLinks)
}

// resolve fills settings derived from others. It runs after env and flags
// so both can feed it; explicit env values are kept.
func (c *Config) resolve() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	if !c.secureCookiesSet {
		c.SecureCookies = strings.HasPrefix(c.BaseURL, "https://")
	}
	if !c.exposeResetLinksSet {
		c.ExposeResetLinks = c.Environment == EnvDevelopment && c.ResendAPIKey == ""
	}
}

// Validate rejects settings the server must not run with.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnvironment, c.Environment)
	}
	if c.Secret == "" {
		return core.ErrSecretRequired
	}
	if len(c.Secret) < 32 {
		return core.ErrSecretTooShort
	}
	if c.Environment == EnvProduction && c.ExposeResetLinks {
		return core.ErrDevLinksInProduction
	}
	return nil
}

// Providers returns the provider credentials keyed by provider name.
func (c *Config) Providers() map[string]Provider {
	return map[string]Provider{
		"google":  c.Google,
		"github":  c.GitHub,
		"discord": c.Discord,
	}
}
