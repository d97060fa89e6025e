package services

import (
	"net/url"
	"strings"
)

// RouteAction is what the page guard does with a request.
type RouteAction int

const (
	RouteAllow RouteAction = iota
	RouteRedirectSignIn
	RouteRedirectHome
)

type RouteDecision struct {
	Action   RouteAction
	Location string
}

// RouteRules holds the page allow-list and deny-list.
type RouteRules struct {
	Public    []string
	Protected []string
	SignIn    string
	Home      string
	// AuthPages redirect signed-in users home.
	AuthPages []string
}

func DefaultRouteRules() *RouteRules {
	return &RouteRules{
		Public:    []string{"/", "/signin", "/signup", "/conversations", "/reset-password"},
		Protected: []string{"/account", "/admin"},
		SignIn:    "/signin",
		Home:      "/",
		AuthPages: []string{"/signin", "/signup"},
	}
}

// IsPublic matches exactly, or as a path prefix for routes other than "/".
func (r *RouteRules) IsPublic(path string) bool {
	for _, route := range r.Public {
		if path == route {
			return true
		}
		if route != "/" && strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func (r *RouteRules) IsProtected(path string) bool {
	for _, route := range r.Protected {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func (r *RouteRules) isAuthPage(path string) bool {
	for _, route := range r.AuthPages {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// Decide applies the rules to a page request. requestURI is the path plus
// query, preserved as the sign-in callback.
func (r *RouteRules) Decide(path, requestURI string, authenticated bool) RouteDecision {
	if authenticated && r.isAuthPage(path) {
		return RouteDecision{Action: RouteRedirectHome, Location: r.Home}
	}
	if r.IsPublic(path) {
		return RouteDecision{Action: RouteAllow}
	}
	if r.IsProtected(path) && !authenticated {
		if requestURI == "" {
			requestURI = path
		}
		return RouteDecision{
			Action:   RouteRedirectSignIn,
			Location: r.SignIn + "?callbackUrl=" + url.QueryEscape(requestURI),
		}
	}
	return RouteDecision{Action: RouteAllow}
}

// SafeCallback returns target when it is a local path, otherwise fallback.
func SafeCallback(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
