package fiber

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/services"
)

type localsKey int

const identityKey localsKey = iota

// CurrentIdentity returns the identity stored by requireSession or the
// page guard, or nil.
func CurrentIdentity(c fiber.Ctx) *core.Identity {
	id, _ := c.Locals(identityKey).(*core.Identity)
	return id
}

// verify reads and checks the session token. Stale or tampered cookies are
// cleared so the browser stops sending them.
func (a *Adapter) verify(c fiber.Ctx) core.SessionResult {
	result := a.agora.Sessions.Verify(a.extractToken(c))
	if result.State == core.SessionExpired || result.State == core.SessionInvalid {
		a.clearSessionCookies(c)
	}
	if result.State == core.SessionValid {
		id := result.Claims.Identity()
		c.Locals(identityKey, &id)
	}
	return result
}

// requireSession rejects requests without a valid session with 401 and
// stores the identity for next.
func (a *Adapter) requireSession(next fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		result := a.verify(c)
		if err := result.Err(); err != nil {
			return handleError(c, a.agora.Log, err)
		}
		return next(c)
	}
}

// PageGuard applies the route rules to page requests. API routes and
// static assets pass through untouched.
func (a *Adapter) PageGuard() fiber.Handler {
	return func(c fiber.Ctx) error {
		p := c.Path()
		if a.isAPIPath(p) || path.Ext(p) != "" {
			return c.Next()
		}

		authenticated := a.verify(c).State == core.SessionValid
		decision := a.agora.Routes.Decide(p, c.OriginalURL(), authenticated)

		switch decision.Action {
		case services.RouteRedirectSignIn, services.RouteRedirectHome:
			return c.Redirect().Status(fiber.StatusFound).To(decision.Location)
		}
		return c.Next()
	}
}

func (a *Adapter) isAPIPath(p string) bool {
	base := a.agora.BasePath
	if base == "" {
		return false
	}
	return p == base || strings.HasPrefix(p, base+"/")
}
