package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
)

func TestHandleCreateUser(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser("manager", auth.RoleManager)
	dev := env.createUser("dev", auth.RoleDeveloper)

	body := CreateUserRequest{
		Name:     "New Tester",
		Username: "newtester",
		Email:    "NewTester@Example.com",
		Password: testPassword,
		Roles:    []string{"tester"},
	}

	t.Run("developer is forbidden", func(t *testing.T) {
		requireStatus(t, env.do(http.MethodPost, "/api/users", env.tokenFor(dev), body), http.StatusForbidden)
	})

	t.Run("manager creates user", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/users", env.tokenFor(manager), body)
		requireStatus(t, w, http.StatusCreated)

		created := decode[UserResponse](t, w)
		assert.Equal(t, "newtester@example.com", created.Email)
		assert.Equal(t, []string{auth.RoleTester}, created.Roles)
		assert.True(t, created.Active)
		assert.NotContains(t, w.Body.String(), "password")

		login := env.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: created.Email, Password: testPassword})
		requireStatus(t, login, http.StatusOK)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		dup := body
		dup.Username = "other"
		w := env.do(http.MethodPost, "/api/users", env.tokenFor(manager), dup)
		requireStatus(t, w, http.StatusConflict)
		assert.Contains(t, decode[errorResponse](t, w).Error, "email")
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		bad := body
		bad.Username, bad.Email, bad.Roles = "ghost", "ghost@example.com", []string{"WIZARD"}
		requireStatus(t, env.do(http.MethodPost, "/api/users", env.tokenFor(manager), bad), http.StatusNotFound)
	})

	t.Run("schema violation", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/users", env.tokenFor(manager), map[string]string{"email": "x@example.com"})
		requireStatus(t, w, http.StatusBadRequest)
		assert.Contains(t, decode[errorResponse](t, w).Error, "validation failed")
	})

	t.Run("multibyte password over bcrypt limit", func(t *testing.T) {
		long := body
		long.Username, long.Email = "accents", "accents@example.com"
		long.Password = strings.Repeat("é", 40) // 40 characters, 80 bytes
		w := env.do(http.MethodPost, "/api/users", env.tokenFor(manager), long)
		requireStatus(t, w, http.StatusBadRequest)
		assert.Contains(t, decode[errorResponse](t, w).Error, "72 bytes")
	})
}

func TestHandleUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("boss", auth.RoleAdmin)
	dev := env.createUser("dev", auth.RoleDeveloper)

	path := fmt.Sprintf("/api/users/%d", dev.ID)
	w := env.do(http.MethodPut, path, env.tokenFor(admin), map[string]any{"name": "Renamed Dev"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Renamed Dev", decode[UserResponse](t, w).Name)

	requireStatus(t, env.do(http.MethodPut, path, env.tokenFor(admin), map[string]any{}), http.StatusBadRequest)
	requireStatus(t, env.do(http.MethodPut, "/api/users/999999", env.tokenFor(admin), map[string]any{"name": "x"}), http.StatusNotFound)
	requireStatus(t, env.do(http.MethodPut, "/api/users/abc", env.tokenFor(admin), map[string]any{"name": "x"}), http.StatusBadRequest)

	w = env.do(http.MethodPut, path, env.tokenFor(admin), map[string]any{"password": strings.Repeat("ü", 37)})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, decode[errorResponse](t, w).Error, "72 bytes")
}

func TestHandleDeactivateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("boss", auth.RoleAdmin)
	manager := env.createUser("manager", auth.RoleManager)
	dev := env.createUser("dev", auth.RoleDeveloper)
	devToken := env.tokenFor(dev)

	path := fmt.Sprintf("/api/users/%d", dev.ID)
	requireStatus(t, env.do(http.MethodDelete, path, env.tokenFor(manager), nil), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodDelete, path, env.tokenFor(admin), nil), http.StatusNoContent)

	// Outstanding tokens stop working on the next request
	requireStatus(t, env.do(http.MethodGet, "/api/users/me", devToken, nil), http.StatusUnauthorized)

	w := env.do(http.MethodGet, path, env.tokenFor(admin), nil)
	requireStatus(t, w, http.StatusOK)
	assert.False(t, decode[UserResponse](t, w).Active)
}

func TestHandleListUsers(t *testing.T) {
	env := newTestEnv(t)
	dev := env.createUser("dev", auth.RoleDeveloper)
	env.createUser("tester", auth.RoleTester)
	token := env.tokenFor(dev)

	w := env.do(http.MethodGet, "/api/users", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]UserResponse](t, w), 3)

	filter := url.QueryEscape(`"TESTER" in roles`)
	w = env.do(http.MethodGet, "/api/users?filter="+filter, token, nil)
	requireStatus(t, w, http.StatusOK)
	users := decode[[]UserResponse](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, "tester", users[0].Username)

	w = env.do(http.MethodGet, "/api/users?filter="+url.QueryEscape("roles ==="), token, nil)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestHandleListUsersByRole(t *testing.T) {
	env := newTestEnv(t)
	dev := env.createUser("dev", auth.RoleDeveloper)
	env.createUser("dev2", auth.RoleDeveloper, auth.RoleTester)

	w := env.do(http.MethodGet, "/api/users/by-role/developer", env.tokenFor(dev), nil)
	requireStatus(t, w, http.StatusOK)

	var names []string
	for _, u := range decode[[]UserResponse](t, w) {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"dev", "dev2"}, names)
}

func TestHandleAssignAndRemoveRole(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser("manager", auth.RoleManager)
	dev := env.createUser("dev", auth.RoleDeveloper)
	tester := roleByName(t, env, auth.RoleTester)
	token := env.tokenFor(manager)

	path := fmt.Sprintf("/api/users/%d/roles/%d", dev.ID, tester.ID)

	w := env.do(http.MethodPost, path, token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.ElementsMatch(t, []string{auth.RoleDeveloper, auth.RoleTester}, decode[UserResponse](t, w).Roles)

	// Assigning twice is a no-op
	w = env.do(http.MethodPost, path, token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[UserResponse](t, w).Roles, 2)

	w = env.do(http.MethodDelete, path, token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, []string{auth.RoleDeveloper}, decode[UserResponse](t, w).Roles)

	missing := fmt.Sprintf("/api/users/%d/roles/%d", dev.ID, 99999)
	requireStatus(t, env.do(http.MethodPost, missing, token, nil), http.StatusNotFound)
}
