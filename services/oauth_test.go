package services

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/lborres/agora/core"
)

func testProviders() *Providers {
	// google and github fully configured, discord missing its secret
	configs := DefaultProviders()
	configs[0].ClientID, configs[0].ClientSecret = "google-id", "google-secret"
	configs[1].ClientID, configs[1].ClientSecret = "github-id", "github-secret"
	configs[2].ClientID = "discord-id"
	return NewProviders(configs)
}

func newTestBridge(store core.UserStorage) *OAuthBridge {
	return NewOAuthBridge(store, testHasher(), testProviders(), nil)
}

// Requirement: a provider is enabled only with both client credentials.
func TestProviders_Enabled(t *testing.T) {
	p := testProviders()

	if got, want := p.Enabled(), []string{"github", "google"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Enabled() = %v, want %v", got, want)
	}
	if got, want := p.Status(), map[string]bool{"google": true, "github": true, "discord": false}; !reflect.DeepEqual(got, want) {
		t.Errorf("Status() = %v, want %v", got, want)
	}
}

func TestProviders_Lookup(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  error
	}{
		{name: "enabled", provider: "GitHub"},
		{name: "disabled", provider: "discord", wantErr: core.ErrProviderDisabled},
		{name: "unknown", provider: "myspace", wantErr: core.ErrUnsupportedProvider},
		{name: "credentials", provider: "credentials", wantErr: core.ErrUnsupportedProvider},
		{name: "empty", provider: "", wantErr: core.ErrUnsupportedProvider},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if _, err := testProviders().Lookup(test.provider); !errors.Is(err, test.wantErr) {
				t.Errorf("Lookup() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestOAuthBridge_BeginSignIn(t *testing.T) {
	// Arrange
	b := newTestBridge(NewFakeUserStorage())

	// Act
	start, err := b.BeginSignIn("google", "http://localhost:3000/api/auth/callback/google")

	// Assert
	if err != nil {
		t.Fatalf("BeginSignIn() error = %v", err)
	}
	u, err := url.Parse(start.URL)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q, want accounts.google.com", u.Host)
	}
	q := u.Query()
	if q.Get("client_id") != "google-id" || q.Get("response_type") != "code" {
		t.Errorf("unexpected query: %v", q)
	}
	if q.Get("state") == "" || q.Get("state") != start.State {
		t.Errorf("state = %q, want %q", q.Get("state"), start.State)
	}
	if q.Get("client_secret") != "" {
		t.Error("authorize url must not carry the client secret")
	}

	if _, err := b.BeginSignIn("discord", "x"); !errors.Is(err, core.ErrProviderDisabled) {
		t.Errorf("disabled provider error = %v", err)
	}
}

// Requirement: a first external sign-in creates a USER with an unusable
// password and the profile's name and avatar.
func TestOAuthBridge_CreatesUser(t *testing.T) {
	// Arrange
	store := NewFakeUserStorage()
	b := newTestBridge(store)
	profile := ExternalProfile{ProviderAccountID: "gh-42", Email: "New@Example.com", Name: "Newt", Avatar: "https://img/1.png"}

	// Act
	id, err := b.OnExternalSignIn(context.Background(), "github", profile)

	// Assert
	if err != nil {
		t.Fatalf("OnExternalSignIn() error = %v", err)
	}
	if id.ID == "gh-42" || id.ID == "" {
		t.Errorf("identity id = %q, want a local id", id.ID)
	}
	if id.Email != "new@example.com" || id.Role != core.RoleUser || id.Name != "Newt" {
		t.Errorf("identity = %+v", id)
	}

	u := store.get(id.ID)
	if u == nil {
		t.Fatal("user should be persisted")
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		t.Fatal("user should get an unusable password hash")
	}
	if u.Avatar == nil || *u.Avatar != "https://img/1.png" {
		t.Errorf("avatar = %v", u.Avatar)
	}

	auth := newTestAuthService(store)
	for _, guess := range []string{"", "gh-42", "new@example.com", "password"} {
		if auth.Authenticate(context.Background(), "new@example.com", guess) != nil {
			t.Errorf("unusable password accepted %q", guess)
		}
	}
}

// Requirement: existing users keep their name and avatar; only nil fields
// are backfilled, and the local id and role win.
func TestOAuthBridge_ExistingUser(t *testing.T) {
	tests := []struct {
		name       string
		userName   *string
		userAvatar *string
		wantName   string
		wantAvatar string
	}{
		{name: "keeps existing values", userName: strPtr("Alice"), userAvatar: strPtr("mine.png"), wantName: "Alice", wantAvatar: "mine.png"},
		{name: "backfills missing values", wantName: "Ally", wantAvatar: "theirs.png"},
		{name: "backfills only avatar", userName: strPtr("Alice"), wantName: "Alice", wantAvatar: "theirs.png"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			u := newUser("local-1", "alice@example.com", core.RoleModerator, mustHash(t, "pw"))
			u.Name, u.Avatar = test.userName, test.userAvatar
			store := NewFakeUserStorage(u)
			b := newTestBridge(store)

			// Act
			id, err := b.OnExternalSignIn(context.Background(), "google",
				ExternalProfile{ProviderAccountID: "g-9", Email: "ALICE@example.com", Name: "Ally", Avatar: "theirs.png"})

			// Assert
			if err != nil {
				t.Fatalf("OnExternalSignIn() error = %v", err)
			}
			if id.ID != "local-1" || id.Role != core.RoleModerator {
				t.Errorf("identity = %+v, want local id and role", id)
			}
			got := store.get("local-1")
			if got.Name == nil || *got.Name != test.wantName {
				t.Errorf("name = %v, want %q", got.Name, test.wantName)
			}
			if got.Avatar == nil || *got.Avatar != test.wantAvatar {
				t.Errorf("avatar = %v, want %q", got.Avatar, test.wantAvatar)
			}
			if store.count() != 1 {
				t.Errorf("no new user should be created, have %d", store.count())
			}
		})
	}
}

// Requirement: a profile without email is rejected and nothing is created.
func TestOAuthBridge_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		profile   ExternalProfile
		createErr error
		getErr    error
		wantErr   error
	}{
		{name: "missing email", provider: "github", profile: ExternalProfile{Name: "x"}, wantErr: core.ErrOAuthEmailRequired},
		{name: "credentials provider", provider: "credentials", profile: ExternalProfile{Email: "a@b.co"}, wantErr: core.ErrUnsupportedProvider},
		{name: "disabled provider", provider: "discord", profile: ExternalProfile{Email: "a@b.co"}, wantErr: core.ErrProviderDisabled},
		{name: "create fails", provider: "github", profile: ExternalProfile{Email: "a@b.co"}, createErr: errors.New("disk full"), wantErr: core.ErrOAuthRejected},
		{name: "lookup fails", provider: "github", profile: ExternalProfile{Email: "a@b.co"}, getErr: errors.New("timeout"), wantErr: core.ErrOAuthRejected},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			store := NewFakeUserStorage()
			store.createErr = test.createErr
			store.getErr = test.getErr
			b := newTestBridge(store)

			// Act
			id, err := b.OnExternalSignIn(context.Background(), test.provider, test.profile)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("OnExternalSignIn() error = %v, want %v", err, test.wantErr)
			}
			if id != nil {
				t.Error("rejected sign-in should not return an identity")
			}
			if store.count() != 0 {
				t.Error("rejected sign-in should not create a user")
			}
		})
	}
}
