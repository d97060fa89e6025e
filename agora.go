package agora

import (
	"fmt"
	"strings"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
	"github.com/lborres/agora/pkg/cache"
	"github.com/lborres/agora/pkg/crypto"
	"github.com/lborres/agora/services"
)

// interfaces
type (
	StorageAdapter  = core.StorageAdapter
	Mailer          = core.Mailer
	RevocationCache = core.RevocationCache
	PasswordHandler = crypto.PasswordHandler
	Logger          = logging.Logger
)

// structs
type (
	User           = core.User
	Identity       = core.Identity
	Role           = core.Role
	Resource       = core.Resource
	SessionConfig  = core.SessionConfig
	ResetConfig    = core.ResetConfig
	CookieConfig   = core.CookieConfig
	ProviderConfig = core.ProviderConfig
	CacheConfig    = core.CacheConfig
	SessionView    = core.SessionView
	RouteRules     = services.RouteRules
)

const (
	RoleUser      = core.RoleUser
	RoleModerator = core.RoleModerator
	RoleAdmin     = core.RoleAdmin
)

const (
	defaultBasePath  = "/api"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewBcrypt            = crypto.NewBcrypt
	NewArgon2            = crypto.NewArgon2
	NewRevocationCache   = cache.NewRevocationCache
	NewZapLogger         = logging.NewZapLogger
	DefaultSessionConfig = core.DefaultSessionConfig
	DefaultResetConfig   = core.DefaultResetConfig
	DefaultCookieConfig  = core.DefaultCookieConfig
	DefaultProviders     = services.DefaultProviders
	DefaultRouteRules    = services.DefaultRouteRules
)

var (
	ErrDBAdapterRequired   = core.ErrDBAdapterRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// HTTPAdapter binds the endpoint table to a web framework.
type HTTPAdapter interface {
	RegisterRoutes(a *Agora) error
}

type Config struct {
	Secret   string
	Database StorageAdapter
	HTTP     HTTPAdapter

	// Mailer delivers reset links. Nil skips delivery.
	Mailer         Mailer
	PasswordHasher PasswordHandler

	// RevocationCache backs sign-out-everywhere after a password reset.
	// Nil uses an in-memory cache unless DisableRevocation is set.
	RevocationCache   RevocationCache
	DisableRevocation bool

	SessionConfig *SessionConfig
	ResetConfig   *ResetConfig
	Cookies       *CookieConfig
	Providers     []ProviderConfig
	Routes        *RouteRules

	// BasePath prefixes every API endpoint. Defaults to /api.
	BasePath string
	Logger   Logger
}

// Agora holds the wired services. Adapters read it to bind handlers.
type Agora struct {
	Auth      *services.AuthService
	Sessions  *services.SessionManager
	OAuth     *services.OAuthBridge
	Reset     *services.ResetService
	Gate      *services.Gate
	Routes    *services.RouteRules
	Endpoints *services.EndpointRegistry

	Cookies  CookieConfig
	BaseURL  string
	BasePath string
	Log      Logger
}

func New(config Config) (*Agora, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	log := config.Logger
	if log == nil {
		log = logging.NewNop()
	}

	sessionConfig := DefaultSessionConfig()
	if config.SessionConfig != nil {
		sessionConfig = *config.SessionConfig
	}

	resetConfig := DefaultResetConfig()
	if config.ResetConfig != nil {
		resetConfig = *config.ResetConfig
	}

	cookies := DefaultCookieConfig()
	if config.Cookies != nil {
		cookies = *config.Cookies
		if cookies.Name == "" {
			cookies.Name = DefaultCookieConfig().Name
		}
	}

	revoked := config.RevocationCache
	if revoked == nil && !config.DisableRevocation {
		revoked = cache.NewRevocationCache(CacheConfig{TTL: sessionConfig.MaxAge})
	}

	hasher := config.PasswordHasher
	if hasher == nil {
		hasher = crypto.NewAuto(crypto.NewBcrypt())
	}

	providerConfigs := config.Providers
	if providerConfigs == nil {
		providerConfigs = DefaultProviders()
	}

	routes := config.Routes
	if routes == nil {
		routes = DefaultRouteRules()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	sessions := services.NewSessionManager(sessionConfig, []byte(config.Secret), revoked, log.With("component", "session"))

	a := &Agora{
		Auth:      services.NewAuthService(config.Database, hasher, sessions, resetConfig.MinPasswordLength, log.With("component", "auth")),
		Sessions:  sessions,
		OAuth:     services.NewOAuthBridge(config.Database, hasher, services.NewProviders(providerConfigs), log.With("component", "oauth")),
		Reset:     services.NewResetService(config.Database, hasher, config.Mailer, sessions, resetConfig, log.With("component", "reset")),
		Gate:      services.NewGate(config.Database, config.Database, log.With("component", "gate")),
		Routes:    routes,
		Endpoints: services.NewEndpointRegistry(),
		Cookies:   cookies,
		BaseURL:   strings.TrimRight(resetConfig.BaseURL, "/"),
		BasePath:  strings.TrimRight(basePath, "/"),
		Log:       log,
	}

	if err := config.HTTP.RegisterRoutes(a); err != nil {
		return nil, err
	}

	return a, nil
}
