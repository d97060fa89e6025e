package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/services"
)

type signInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequestInput struct {
	Email string `json:"email"`
}

type resetRedeemInput struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// authResponse is returned by sign-up and sign-in. The token is also set
// as a cookie; it is repeated here for clients that send a bearer header.
type authResponse struct {
	Message   string        `json:"message"`
	Success   bool          `json:"success"`
	User      core.Identity `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt int64         `json:"expiresAt"`
}

type sessionResponse struct {
	Session       *core.SessionView `json:"session"`
	Authenticated bool              `json:"authenticated"`
}

func (a *Adapter) issue(c fiber.Ctx, status int, message string, issued *core.IssuedSession) error {
	expires := issued.Claims.ExpiresAt.Time
	a.setSessionCookie(c, issued.Token, expires)
	return c.Status(status).JSON(authResponse{
		Message:   message,
		Success:   true,
		User:      issued.Claims.Identity(),
		Token:     issued.Token,
		ExpiresAt: expires.Unix(),
	})
}

func (a *Adapter) signUp(c fiber.Ctx) error {
	var input services.SignUpInput
	if err := c.Bind().Body(&input); err != nil {
		return handleError(c, a.agora.Log, errInvalidBody)
	}

	_, issued, err := a.agora.Auth.SignUp(c.Context(), input)
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}

	return a.issue(c, http.StatusCreated, "account created", issued)
}

func (a *Adapter) signIn(c fiber.Ctx) error {
	var input signInInput
	if err := c.Bind().Body(&input); err != nil {
		return handleError(c, a.agora.Log, errInvalidBody)
	}

	issued, err := a.agora.Auth.SignIn(c.Context(), input.Email, input.Password)
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}

	return a.issue(c, http.StatusOK, "signed in", issued)
}

// signOut clears the session cookies. Tokens are stateless, so a copy of
// the token kept elsewhere stays valid until it expires.
func (a *Adapter) signOut(c fiber.Ctx) error {
	a.clearSessionCookies(c)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "signed out",
		"success": true,
	})
}

// session reports the current session. A missing or unusable session is
// not an error here.
func (a *Adapter) session(c fiber.Ctx) error {
	result := a.verify(c)
	if result.State != core.SessionValid {
		return c.Status(http.StatusOK).JSON(sessionResponse{})
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{
		Session:       core.NewSessionView(result.Claims),
		Authenticated: true,
	})
}

func (a *Adapter) requestReset(c fiber.Ctx) error {
	var input resetRequestInput
	if err := c.Bind().Body(&input); err != nil {
		return handleError(c, a.agora.Log, errInvalidBody)
	}

	result, err := a.agora.Reset.RequestReset(c.Context(), input.Email)
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}

	return c.Status(http.StatusOK).JSON(result)
}

func (a *Adapter) redeemReset(c fiber.Ctx) error {
	var input resetRedeemInput
	if err := c.Bind().Body(&input); err != nil {
		return handleError(c, a.agora.Log, errInvalidBody)
	}

	if err := a.agora.Reset.RedeemReset(c.Context(), input.Token, input.Password); err != nil {
		return handleError(c, a.agora.Log, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": services.ResetCompletedMessage,
	})
}
