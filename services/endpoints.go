package services

import (
	"fmt"
	"sort"

	"github.com/lborres/agora/core"
)

// Operation IDs adapters bind handlers to.
const (
	OpSignUp             = "signUpWithEmailAndPassword"
	OpSignIn             = "signInWithEmailAndPassword"
	OpSignOut            = "signOut"
	OpOAuthSignIn        = "oauthSignIn"
	OpListProviders      = "listProviders"
	OpGetSession         = "getSession"
	OpRequestReset       = "requestPasswordReset"
	OpRedeemReset        = "resetPassword"
	OpListUsers          = "listUsers"
	OpGetUser            = "getUserProfile"
	OpChangeRole         = "changeUserRole"
	OpEditMessage        = "editMessage"
	OpDeleteMessage      = "deleteMessage"
	OpEditConversation   = "editConversation"
	OpDeleteConversation = "deleteConversation"
)

func endpoint(method, path string, access core.Access, opID, desc string) core.Endpoint {
	return core.Endpoint{
		Path:   path,
		Method: method,
		Access: access,
		Metadata: core.EndpointMetadata{
			OperationID: opID,
			Description: desc,
		},
	}
}

// BaseEndpoints returns framework-agnostic endpoint specifications for the
// auth, user and content routes. Paths are relative to the API base path.
//
// Adapters bind their own handlers by OperationID, so several frameworks
// can share one route table.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		endpoint("POST", "/auth/sign-up", core.AccessPublic, OpSignUp, "Sign up a user using email and password"),
		endpoint("POST", "/auth/sign-in", core.AccessPublic, OpSignIn, "Sign in a user using email and password"),
		endpoint("POST", "/auth/sign-out", core.AccessPublic, OpSignOut, "Clear the session cookie"),
		endpoint("POST", "/auth/oauth-signin", core.AccessPublic, OpOAuthSignIn, "Start sign-in with an external provider"),
		endpoint("GET", "/auth/providers", core.AccessPublic, OpListProviders, "List external providers and whether they are enabled"),
		endpoint("GET", "/auth/session", core.AccessPublic, OpGetSession, "Get the current user's session data"),
		endpoint("POST", "/auth/reset-password/request", core.AccessPublic, OpRequestReset, "Request a password reset email"),
		endpoint("POST", "/auth/reset-password/reset", core.AccessPublic, OpRedeemReset, "Set a new password with a reset token"),
		endpoint("GET", "/users", core.AccessAdmin, OpListUsers, "List all users"),
		endpoint("GET", "/users/:id", core.AccessPublic, OpGetUser, "Get a user's public profile"),
		endpoint("PUT", "/users/:id", core.AccessAdmin, OpChangeRole, "Change a user's role"),
		endpoint("PATCH", "/messages/:id", core.AccessSession, OpEditMessage, "Edit a message"),
		endpoint("DELETE", "/messages/:id", core.AccessSession, OpDeleteMessage, "Delete a message"),
		endpoint("PATCH", "/conversations/:id", core.AccessSession, OpEditConversation, "Edit a conversation"),
		endpoint("DELETE", "/conversations/:id", core.AccessSession, OpDeleteConversation, "Delete a conversation"),
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and rejects duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a registry with the base endpoints registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		// base paths are unique, checked by tests
		_ = reg.register(&base[i])
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// RegisterPlugin registers additional endpoints. If any of them conflicts
// with a registered endpoint or with another in the same batch, none are
// registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := &endpoints[i]
		r.endpoints[endpointKey(ep)] = ep
	}

	return nil
}

// Endpoints returns all registered endpoints ordered by path then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
