package auth

import (
	"context"
	"slices"
)

// Principal is the verified caller attached to a request after authentication.
//
// It is built once per request from a verified token and a freshly resolved
// identity, and never mutated afterwards. Roles mirror the identity's role
// names at resolution time and are the only input to authorization.
type Principal struct {
	// UserID references users.id.
	UserID int64
	// Email is the token subject.
	Email string
	// Username and Name are display fields copied from the identity.
	Username string
	Name     string
	// Roles lists the role tags granted to the identity (e.g. "ADMIN").
	Roles []string
	// TokenID is the jti of the bearer token that authenticated the request.
	TokenID string
}

// HasRole reports whether the principal holds the exact role tag.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

func (p Principal) clone() Principal {
	p.Roles = slices.Clone(p.Roles)
	return p
}

type principalContextKey struct{}

// SetUserContext stores the authenticated principal on the context for downstream consumers.
func SetUserContext(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal.clone())
}

// GetUserFromContext retrieves the authenticated principal from the context.
// The returned value is a copy; handlers cannot alter what later middleware sees.
func GetUserFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return Principal{}, false
	}
	return principal.clone(), true
}
