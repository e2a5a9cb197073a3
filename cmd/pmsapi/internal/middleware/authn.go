package middleware

import (
	"log"
	"net/http"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
)

// Authenticate attaches the request's principal to the context when the
// bearer token verifies and the account is active.
//
// Authentication never rejects a request by itself:
//   - No credential: continue anonymous
//   - Rejected credential (bad token, unknown or inactive account, store
//     error): log and continue anonymous
//   - Success: continue with auth.SetUserContext
//
// RequireRoles decides between 401 and 403 for routes that need a role.
// verbose also logs successful authentications.
func Authenticate(authenticator iam.Authenticator, verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := authenticator.Authenticate(ctx, iam.AuthRequest{Headers: r.Header})
			if err != nil {
				log.Printf("authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
				next.ServeHTTP(w, r)
				return
			}

			if principal != nil {
				if verbose {
					log.Printf("authenticated user %d (%s) for %s %s", principal.UserID, principal.Email, r.Method, r.URL.Path)
				}
				ctx = auth.SetUserContext(ctx, *principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
