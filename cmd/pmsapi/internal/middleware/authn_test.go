package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
)

type authenticatorFunc func(ctx context.Context, req iam.AuthRequest) (*auth.Principal, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, req iam.AuthRequest) (*auth.Principal, error) {
	return f(ctx, req)
}

func principalRecorder(got **auth.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := auth.GetUserFromContext(r.Context()); ok {
			*got = &p
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	developer := &auth.Principal{UserID: 7, Email: "dev@example.com", Roles: []string{auth.RoleDeveloper}}

	tests := []struct {
		name      string
		principal *auth.Principal
		err       error
		want      *auth.Principal
	}{
		{name: "no credential stays anonymous"},
		{name: "rejected credential stays anonymous", err: errors.New("invalid token: token expired")},
		{name: "valid credential attaches principal", principal: developer, want: developer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenHeader string
			authn := authenticatorFunc(func(_ context.Context, req iam.AuthRequest) (*auth.Principal, error) {
				seenHeader = req.Headers.Get("Authorization")
				return tt.principal, tt.err
			})

			var got *auth.Principal
			handler := Authenticate(authn, false)(principalRecorder(&got))

			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			req.Header.Set("Authorization", "Bearer abc")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNoContent, w.Code, "authentication never rejects by itself")
			assert.Equal(t, "Bearer abc", seenHeader)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}
