package core

import "errors"

// Authentication Related Errors
var (
	// User errors
	ErrUserExists         = errors.New("user already exists")       // 409 Conflict
	ErrUserNotFound       = errors.New("user not found")            // 404 Not Found
	ErrInvalidCredentials = errors.New("invalid email or password") // 401 Unauthorized
)

// Session errors
var (
	ErrMissingSession   = errors.New("not authenticated")     // 401
	ErrInvalidToken     = errors.New("invalid session token") // 401
	ErrSessionExpired   = errors.New("session expired")       // 401
	ErrIdentityRequired = errors.New("identity is incomplete")
	ErrCacheNotFound    = errors.New("entry not found in cache")
)

// Password reset errors
var (
	ErrTokenRequired     = errors.New("token is required")        // 400
	ErrInvalidResetToken = errors.New("invalid or expired token") // 401
)

// Authorization errors
var (
	ErrForbidden       = errors.New("not authorized")                                         // 403
	ErrNotOwner        = errors.New("only the author can edit this content")                  // 403
	ErrDeleteForbidden = errors.New("only the author or a moderator can delete this content") // 403
	ErrAdminRequired   = errors.New("administrator role required")                            // 403
	ErrSelfRoleChange  = errors.New("administrators cannot change their own role")            // 403
	ErrNotFound        = errors.New("resource not found")                                     // 404
)

// OAuth errors
var (
	ErrUnsupportedProvider = errors.New("unsupported sign-in provider")     // 400
	ErrProviderDisabled    = errors.New("sign-in provider is not enabled")  // 400
	ErrOAuthEmailRequired  = errors.New("provider did not return an email") // 401
	ErrOAuthRejected       = errors.New("external sign-in rejected")        // 401
)

// Validation errors (client input)
var (
	ErrEmailRequired    = errors.New("email is required")     // 400
	ErrPasswordRequired = errors.New("password is required")  // 400
	ErrPasswordTooShort = errors.New("password is too short") // 400
	ErrPasswordTooLong  = errors.New("password is too long")  // 400
	ErrInvalidEmail     = errors.New("invalid email format")  // 400
	ErrInvalidRole      = errors.New("invalid role")          // 400
	ErrContentRequired  = errors.New("content is required")   // 400
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired    = errors.New("database adapter is required")                // 500
	ErrHTTPAdapterRequired  = errors.New("http adapter is required")                    // 500
	ErrSecretRequired       = errors.New("secret is required")                          // 500
	ErrSecretTooShort       = errors.New("secret too short")                            // 500
	ErrDevLinksInProduction = errors.New("reset links cannot be exposed in production") // 500
)
