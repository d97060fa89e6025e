package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agora/core"
)

type changeRoleInput struct {
	Role string `json:"role"`
}

func (a *Adapter) listUsers(c fiber.Ctx) error {
	users, err := a.agora.Gate.ListUsers(c.Context(), CurrentIdentity(c))
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}
	return c.Status(http.StatusOK).JSON(users)
}

func (a *Adapter) getUser(c fiber.Ctx) error {
	profile, err := a.agora.Gate.Profile(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}
	return c.Status(http.StatusOK).JSON(profile)
}

// changeRole checks the caller before reading the body, so a non-admin
// gets 403 whatever it sends.
func (a *Adapter) changeRole(c fiber.Ctx) error {
	actor := CurrentIdentity(c)
	if err := a.agora.Gate.RequireAdmin(c.Context(), actor); err != nil {
		return handleError(c, a.agora.Log, err)
	}

	var input changeRoleInput
	if err := c.Bind().Body(&input); err != nil {
		return handleError(c, a.agora.Log, errInvalidBody)
	}

	user, err := a.agora.Gate.ChangeRole(c.Context(), actor, c.Params("id"), input.Role)
	if err != nil {
		return handleError(c, a.agora.Log, err)
	}
	return c.Status(http.StatusOK).JSON(user)
}

// editResource leaves body validation to the gate, after the existence and
// ownership checks. An unreadable body counts as an empty update.
func (a *Adapter) editResource(kind core.ResourceKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		var update core.ResourceUpdate
		if err := c.Bind().Body(&update); err != nil {
			update = core.ResourceUpdate{}
		}

		r, err := a.agora.Gate.EditResource(c.Context(), CurrentIdentity(c), kind, c.Params("id"), update)
		if err != nil {
			return handleError(c, a.agora.Log, err)
		}
		return c.Status(http.StatusOK).JSON(r)
	}
}

func (a *Adapter) deleteResource(kind core.ResourceKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Params("id")
		if err := a.agora.Gate.DeleteResource(c.Context(), CurrentIdentity(c), kind, id); err != nil {
			return handleError(c, a.agora.Log, err)
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"id":      id,
			"deleted": true,
		})
	}
}
