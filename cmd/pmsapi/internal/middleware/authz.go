package middleware

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
)

// RequireRoles enforces a route policy against the principal attached by
// Authenticate. Public policies pass every request through.
func RequireRoles(policy auth.RoutePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *auth.Principal
			if p, ok := auth.GetUserFromContext(r.Context()); ok {
				principal = &p
			}

			switch auth.Check(policy, principal) {
			case auth.Allowed:
				next.ServeHTTP(w, r)
			case auth.Unauthenticated:
				unauthenticated(w)
			default:
				log.Printf("forbidden: user %d with roles %v for %s %s", principal.UserID, principal.Roles, r.Method, r.URL.Path)
				forbidden(w)
			}
		})
	}
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pmsapi"`)
	writeJSONError(w, http.StatusUnauthorized, "authentication required")
}

func forbidden(w http.ResponseWriter) {
	writeJSONError(w, http.StatusForbidden, "access denied")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
