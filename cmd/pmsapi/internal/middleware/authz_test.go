package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
)

func TestRequireRoles(t *testing.T) {
	adminOrManager := auth.RequireAnyRole(auth.RoleAdmin, auth.RoleManager)

	tests := []struct {
		name       string
		policy     auth.RoutePolicy
		principal  *auth.Principal
		wantStatus int
		wantError  string
	}{
		{
			name:       "public route anonymous",
			policy:     auth.Public(),
			wantStatus: http.StatusOK,
		},
		{
			name:       "protected route anonymous",
			policy:     adminOrManager,
			wantStatus: http.StatusUnauthorized,
			wantError:  "authentication required",
		},
		{
			name:       "role outside policy",
			policy:     adminOrManager,
			principal:  &auth.Principal{UserID: 3, Roles: []string{auth.RoleDeveloper}},
			wantStatus: http.StatusForbidden,
			wantError:  "access denied",
		},
		{
			name:       "principal without roles",
			policy:     adminOrManager,
			principal:  &auth.Principal{UserID: 4},
			wantStatus: http.StatusForbidden,
			wantError:  "access denied",
		},
		{
			name:       "manager allowed",
			policy:     adminOrManager,
			principal:  &auth.Principal{UserID: 5, Roles: []string{auth.RoleManager}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin does not imply manager",
			policy:     auth.RequireAnyRole(auth.RoleManager),
			principal:  &auth.Principal{UserID: 1, Roles: []string{auth.RoleAdmin}},
			wantStatus: http.StatusForbidden,
			wantError:  "access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
			if tt.principal != nil {
				req = req.WithContext(auth.SetUserContext(req.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			RequireRoles(tt.policy)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantError == "" {
				return
			}

			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}
