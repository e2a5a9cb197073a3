package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/config"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/bunx"
	pmsmiddleware "github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/middleware"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/migrations"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
	testPassword  = "secret-password"
)

// testEnv is a fully wired router over a migrated in-memory SQLite database.
type testEnv struct {
	t        *testing.T
	router   chi.Router
	codec    *auth.TokenCodec
	svc      iam.Service
	policies *auth.PolicyRegistry
	now      time.Time
}

type envOption func(*RouterOptions)

func withLoginLimit(cfg pmsmiddleware.RateLimitConfig) envOption {
	return func(o *RouterOptions) { o.LoginLimit = &cfg }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	users := repository.NewBunUserRepository(db)
	roles := repository.NewBunRoleRepository(db)

	report := iam.NewAdminSeeder(users, roles, config.AdminSeedConfig{
		Email:    adminEmail,
		Username: "admin",
		Password: adminPassword,
	}, bcrypt.MinCost).Seed(ctx)
	require.Empty(t, report.Errors)

	svc, err := iam.NewIAMService(iam.IAMServiceDependencies{Users: users, Roles: roles, HashCost: bcrypt.MinCost})
	require.NoError(t, err)

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    time.Hour,
		Issuer: "pmsapi",
	})
	require.NoError(t, err)

	policies, err := auth.NewPolicyRegistry()
	require.NoError(t, err)

	validator, err := validation.NewRequestValidator(8)
	require.NoError(t, err)

	resolver := iam.NewStoreResolver(users)
	routerOpts := RouterOptions{
		Authenticator: iam.NewBearerAuthenticator(codec, resolver),
		Verifier:      iam.NewCredentialVerifier(resolver, codec, iam.WithLoginRecorder(resolver)),
		Resolver:      resolver,
		IAMService:    svc,
		Codec:         codec,
		Policies:      policies,
		Validator:     validator,
	}
	for _, opt := range opts {
		opt(&routerOpts)
	}

	router, err := NewRouter(routerOpts)
	require.NoError(t, err)

	return &testEnv{t: t, router: router, codec: codec, svc: svc, policies: policies, now: time.Now()}
}

// createUser adds an active account holding roles and returns it.
func (e *testEnv) createUser(username string, roles ...string) *iam.Identity {
	e.t.Helper()
	identity, err := e.svc.CreateUser(context.Background(), iam.CreateUserInput{
		Name:     "User " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Roles:    roles,
	})
	require.NoError(e.t, err)
	return identity
}

func (e *testEnv) tokenFor(identity *iam.Identity) string {
	e.t.Helper()
	token, err := e.codec.Encode(identity.Email, identity.ID, e.now)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}
