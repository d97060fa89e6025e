package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agora"
	"github.com/lborres/agora/core"
	"github.com/lborres/agora/services"
)

type Adapter struct {
	app      *fiber.App
	agora    *agora.Agora
	handlers map[string]fiber.Handler
}

var _ agora.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{
		app:      app,
		handlers: make(map[string]fiber.Handler),
	}
}

// Handle binds h to an operation id, typically one added with
// EndpointRegistry.RegisterPlugin. It must be called before RegisterRoutes.
func (a *Adapter) Handle(operationID string, h fiber.Handler) *Adapter {
	a.handlers[operationID] = h
	return a
}

func (a *Adapter) builtins() map[string]fiber.Handler {
	return map[string]fiber.Handler{
		services.OpSignUp:             a.signUp,
		services.OpSignIn:             a.signIn,
		services.OpSignOut:            a.signOut,
		services.OpOAuthSignIn:        a.oauthSignIn,
		services.OpListProviders:      a.listProviders,
		services.OpGetSession:         a.session,
		services.OpRequestReset:       a.requestReset,
		services.OpRedeemReset:        a.redeemReset,
		services.OpListUsers:          a.listUsers,
		services.OpGetUser:            a.getUser,
		services.OpChangeRole:         a.changeRole,
		services.OpEditMessage:        a.editResource(core.KindMessage),
		services.OpDeleteMessage:      a.deleteResource(core.KindMessage),
		services.OpEditConversation:   a.editResource(core.KindConversation),
		services.OpDeleteConversation: a.deleteResource(core.KindConversation),
	}
}

// RegisterRoutes mounts every registered endpoint under the base path.
// Session and admin endpoints go through requireSession; the admin role
// itself is checked against the store by the gate.
func (a *Adapter) RegisterRoutes(ag *agora.Agora) error {
	a.agora = ag

	handlers := a.builtins()
	for op, h := range a.handlers {
		handlers[op] = h
	}

	api := a.app.Group(ag.BasePath)
	for _, ep := range ag.Endpoints.Endpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}
		if ep.Access != core.AccessPublic {
			h = a.requireSession(h)
		}
		api.Add([]string{ep.Method}, ep.Path, h)
	}

	return nil
}
