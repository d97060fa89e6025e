package fiber

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/pkg/crypto"
	"github.com/lborres/agora/services"
)

type oauthSignInInput struct {
	Provider    string `json:"provider"`
	CallbackURL string `json:"callbackUrl"`
}

func (a *Adapter) listProviders(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(a.agora.OAuth.Providers().Status())
}

// CallbackURL is the redirect URI registered with provider.
func (a *Adapter) CallbackURL(provider string) string {
	return a.agora.BaseURL + a.agora.BasePath + "/auth/callback/" + provider
}

// oauthSignIn returns the provider authorize URL and remembers the state
// and the local page to return to.
func (a *Adapter) oauthSignIn(c fiber.Ctx) error {
	var input oauthSignInInput
	if err := c.Bind().Body(&input); err != nil {
		return handleError(c, a.agora.Log, errInvalidBody)
	}

	start, err := a.agora.OAuth.BeginSignIn(input.Provider, a.CallbackURL(input.Provider))
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}

	expires := time.Now().Add(oauthCookieTTL)
	c.Cookie(a.cookie(stateCookie, start.State, expires))
	c.Cookie(a.cookie(callbackCookie, services.SafeCallback(input.CallbackURL, "/"), expires))

	return c.Status(http.StatusOK).JSON(start)
}

// VerifyOAuthState checks the state query parameter of a provider callback
// against the cookie set by oauthSignIn.
func (a *Adapter) VerifyOAuthState(c fiber.Ctx) error {
	want := c.Cookies(stateCookie)
	if want == "" || !crypto.ConstantTimeEqual(want, c.Query("state")) {
		return core.ErrOAuthRejected
	}
	return nil
}

// CompleteExternalSignIn finishes a provider sign-in once the caller has
// exchanged the code for profile. It sets the session cookie and redirects
// to the remembered page, or to the sign-in page with an error.
func (a *Adapter) CompleteExternalSignIn(c fiber.Ctx, provider string, profile services.ExternalProfile) error {
	callback := services.SafeCallback(c.Cookies(callbackCookie), a.agora.Routes.Home)
	expireCookie(c, a.cookie(stateCookie, "", time.Time{}))
	expireCookie(c, a.cookie(callbackCookie, "", time.Time{}))

	id, err := a.agora.OAuth.OnExternalSignIn(c.Context(), provider, profile)
	if err != nil {
		a.agora.Log.Warn(c.Context(), "external sign-in rejected", "provider", provider, "error", err)
		return c.Redirect().Status(fiber.StatusFound).To(a.agora.Routes.SignIn + "?error=" + url.QueryEscape("AccessDenied"))
	}

	issued, err := a.agora.Sessions.Issue(*id)
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}
	a.setSessionCookie(c, issued.Token, issued.Claims.ExpiresAt.Time)

	return c.Redirect().Status(fiber.StatusFound).To(callback)
}
