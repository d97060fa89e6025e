package fiber

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

const (
	securePrefix   = "__Secure-"
	stateCookie    = "agora.oauth-state"
	callbackCookie = "agora.callback-url"
	oauthCookieTTL = 10 * time.Minute
)

// legacyCookieNames are earlier session cookie names. They are read and
// always cleared alongside the current one.
var legacyCookieNames = []string{
	"session-token",
	"__Secure-session-token",
	"authjs.session-token",
	"__Secure-authjs.session-token",
}

func (a *Adapter) cookieName() string {
	if a.agora.Cookies.Secure {
		return securePrefix + a.agora.Cookies.Name
	}
	return a.agora.Cookies.Name
}

// sessionCookieNames lists every name a session token may arrive under,
// current name first.
func (a *Adapter) sessionCookieNames() []string {
	base := a.agora.Cookies.Name
	names := []string{a.cookieName()}
	if a.agora.Cookies.Secure {
		names = append(names, base)
	} else {
		names = append(names, securePrefix+base)
	}
	return append(names, legacyCookieNames...)
}

func (a *Adapter) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   a.agora.Cookies.Domain,
		Expires:  expires,
		Secure:   a.agora.Cookies.Secure || strings.HasPrefix(name, securePrefix),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func expireCookie(c fiber.Ctx, ck *fiber.Cookie) {
	ck.Value = ""
	ck.Expires = time.Unix(0, 0).UTC()
	ck.MaxAge = -1
	c.Cookie(ck)
}

// setSessionCookie clears every known variant, then sets the current one.
func (a *Adapter) setSessionCookie(c fiber.Ctx, token string, expires time.Time) {
	a.clearSessionCookies(c)
	c.Cookie(a.cookie(a.cookieName(), token, expires))
}

func (a *Adapter) clearSessionCookies(c fiber.Ctx) {
	for _, name := range a.sessionCookieNames() {
		expireCookie(c, a.cookie(name, "", time.Time{}))
	}
}

// extractToken reads the session token from the Authorization header
// first, then from the session cookies.
func (a *Adapter) extractToken(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	for _, name := range a.sessionCookieNames() {
		if v := c.Cookies(name); v != "" {
			return v
		}
	}
	return ""
}
