package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	pmsmiddleware "github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/middleware"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/telemetry"
)

// RouterOptions controls the construction of the PMS HTTP router.
// Authenticator, Verifier, Resolver, IAMService, Codec, Policies and Validator
// are required; the rest fall back to defaults.
type RouterOptions struct {
	Authenticator iam.Authenticator
	Verifier      loginService
	Resolver      iam.IdentityResolver
	IAMService    iamAdminService
	Codec         *auth.TokenCodec
	Policies      *auth.PolicyRegistry
	Validator     *validation.RequestValidator
	Metrics       *telemetry.ServerMetrics
	LoginLimit    *pmsmiddleware.RateLimitConfig
	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	VerboseAuth   bool
	Now           func() time.Time
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodPatch,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
}

// CORSOptionsFor returns the default policy restricted to origins.
func CORSOptionsFor(origins []string) cors.Options {
	opts := DefaultCORSOptions()
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
	}
	return opts
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// routeEntry is one entry of the route table. The router and RegisterPolicies
// both read policies from this table.
type routeEntry struct {
	method  string
	pattern string
	policy  auth.RoutePolicy
	handler http.HandlerFunc
	extra   []func(http.Handler) http.Handler
}

// routeTable returns the full API route table. Handlers only touch their
// dependencies when invoked, so the table can be built from zero options to
// list policies.
func routeTable(opts RouterOptions, now func() time.Time) []routeEntry {
	anyRole := auth.RequireAnyRole(auth.RoleAdmin, auth.RoleManager, auth.RoleDeveloper, auth.RoleTester)
	adminOrManager := auth.RequireAnyRole(auth.RoleAdmin, auth.RoleManager)
	adminOnly := auth.RequireAnyRole(auth.RoleAdmin)

	var loginLimit []func(http.Handler) http.Handler
	if opts.LoginLimit != nil {
		loginLimit = append(loginLimit, pmsmiddleware.RateLimiter(*opts.LoginLimit))
	}

	svc := opts.IAMService
	return []routeEntry{
		// Auth
		{http.MethodPost, "/api/auth/login", auth.Public(), HandleLogin(opts.Verifier, opts.Validator), loginLimit},
		{http.MethodPost, "/api/auth/logout", auth.Public(), HandleLogout(), nil},
		{http.MethodPost, "/api/auth/validate", auth.Public(), HandleValidate(opts.Codec, now), nil},
		{http.MethodGet, "/api/auth/permissions", anyRole, HandlePermissions(opts.Policies), nil},

		// Users
		{http.MethodGet, "/api/users/me", anyRole, HandleMe(opts.Resolver), nil},
		{http.MethodGet, "/api/users", anyRole, HandleListUsers(svc), nil},
		{http.MethodGet, "/api/users/{id}", anyRole, HandleGetUser(svc), nil},
		{http.MethodGet, "/api/users/by-role/{roleName}", anyRole, HandleListUsersByRole(svc), nil},
		{http.MethodGet, "/api/users/roles", adminOrManager, HandleListRoles(svc), nil},
		{http.MethodPost, "/api/users", adminOrManager, HandleCreateUser(svc, opts.Validator), nil},
		{http.MethodPut, "/api/users/{id}", adminOrManager, HandleUpdateUser(svc, opts.Validator), nil},
		{http.MethodDelete, "/api/users/{id}", adminOnly, HandleDeactivateUser(svc), nil},
		{http.MethodPost, "/api/users/{userId}/roles/{roleId}", adminOrManager, HandleAssignRole(svc), nil},
		{http.MethodDelete, "/api/users/{userId}/roles/{roleId}", adminOrManager, HandleRemoveRole(svc), nil},

		// Roles
		{http.MethodGet, "/api/roles", adminOrManager, HandleListRoles(svc), nil},
		{http.MethodGet, "/api/roles/{id}", adminOrManager, HandleGetRole(svc), nil},
		{http.MethodGet, "/api/roles/name/{name}", adminOrManager, HandleGetRoleByName(svc), nil},
		{http.MethodPost, "/api/roles", adminOnly, HandleCreateRole(svc, opts.Validator), nil},
		{http.MethodPut, "/api/roles/{id}", adminOnly, HandleUpdateRole(svc, opts.Validator), nil},
		{http.MethodDelete, "/api/roles/{id}", adminOnly, HandleDeleteRole(svc), nil},
	}
}

// RegisterPolicies records the policy of every API route in registry without
// building a router. The CLI uses it to print the route table.
func RegisterPolicies(registry *auth.PolicyRegistry) error {
	for _, rt := range routeTable(RouterOptions{}, time.Now) {
		if err := registry.Register(rt.method, rt.pattern, rt.policy); err != nil {
			return err
		}
	}
	return nil
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the PMS handlers mounted.
//
// Request flow: RequestID, Logger, Recoverer, CORS, metrics, Authenticate,
// then per route RequireRoles and the handler.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()

	// Baseline middleware. No RealIP: the login rate limit keys on the peer
	// address, not on client-supplied forwarding headers.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.Metrics != nil {
		r.Use(pmsmiddleware.RequestMetrics(opts.Metrics))
	}
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(pmsmiddleware.Authenticate(opts.Authenticator, opts.VerboseAuth))

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.LoginLimit == nil {
		log.Println("WARNING: login rate limiting disabled")
	}

	for _, rt := range routeTable(opts, now) {
		if err := opts.Policies.Register(rt.method, rt.pattern, rt.policy); err != nil {
			return nil, fmt.Errorf("register routes: %w", err)
		}
		chain := append([]func(http.Handler) http.Handler{pmsmiddleware.RequireRoles(rt.policy)}, rt.extra...)
		r.With(chain...).Method(rt.method, rt.pattern, rt.handler)
	}

	return r, nil
}

func (o RouterOptions) validate() error {
	switch {
	case o.Authenticator == nil:
		return fmt.Errorf("router requires an authenticator")
	case o.Verifier == nil:
		return fmt.Errorf("router requires a credential verifier")
	case o.Resolver == nil:
		return fmt.Errorf("router requires an identity resolver")
	case o.IAMService == nil:
		return fmt.Errorf("router requires the IAM service")
	case o.Codec == nil:
		return fmt.Errorf("router requires a token codec")
	case o.Policies == nil:
		return fmt.Errorf("router requires a policy registry")
	case o.Validator == nil:
		return fmt.Errorf("router requires a request validator")
	}
	return nil
}

// NewH2CHandler wraps the shared router with an h2c server to provide HTTP/2
// over cleartext.
func NewH2CHandler(opts RouterOptions) (http.Handler, error) {
	router, err := NewRouter(opts)
	if err != nil {
		return nil, err
	}
	return h2c.NewHandler(router, &http2.Server{}), nil
}
