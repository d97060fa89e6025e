package core

import "time"

// ResetConfig controls the password reset flow.
type ResetConfig struct {
	TokenTTL          time.Duration
	MinPasswordLength int
	// BaseURL is the public site URL reset links point at.
	BaseURL string
	// ExposeDevLinks returns the raw reset link in the response. Only for
	// local development without a mail credential.
	ExposeDevLinks bool
}

func DefaultResetConfig() ResetConfig {
	return ResetConfig{
		TokenTTL:          time.Hour,
		MinPasswordLength: 6,
		BaseURL:           "http://localhost:3000",
	}
}

// ProviderConfig describes one external sign-in provider. A provider is
// enabled only when both client credentials are present.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	Scopes       []string
}

func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// CookieConfig controls the transport binding of session tokens.
type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

func DefaultCookieConfig() CookieConfig {
	return CookieConfig{Name: "agora.session-token"}
}
