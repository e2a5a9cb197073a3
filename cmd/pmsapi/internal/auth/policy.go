package auth

import "slices"

// RoutePolicy lists the role tags allowed to invoke a route. It is attached when
// the route is registered and never changes afterwards. A policy with no roles
// marks a public route.
type RoutePolicy struct {
	allowed []string
}

// Public returns the policy for routes that anonymous callers may use.
func Public() RoutePolicy {
	return RoutePolicy{}
}

// RequireAnyRole returns a policy satisfied by any one of roles. Every permitted
// role must be listed; there is no implied hierarchy.
func RequireAnyRole(roles ...string) RoutePolicy {
	allowed := make([]string, 0, len(roles))
	for _, r := range roles {
		n := NormalizeRole(r)
		if n == "" || slices.Contains(allowed, n) {
			continue
		}
		allowed = append(allowed, n)
	}
	return RoutePolicy{allowed: allowed}
}

// AllowedRoles returns a copy of the permitted role tags.
func (p RoutePolicy) AllowedRoles() []string {
	return slices.Clone(p.allowed)
}

// IsPublic reports whether the route requires no role.
func (p RoutePolicy) IsPublic() bool {
	return len(p.allowed) == 0
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allowed Decision = iota
	// Unauthenticated means no principal was attached to a protected route.
	Unauthenticated
	// Forbidden means the principal holds none of the allowed roles.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Check evaluates policy against the request principal (nil for anonymous).
// It has no side effects.
func Check(policy RoutePolicy, principal *Principal) Decision {
	if policy.IsPublic() {
		return Allowed
	}
	if principal == nil {
		return Unauthenticated
	}
	for _, role := range principal.Roles {
		if slices.Contains(policy.allowed, role) {
			return Allowed
		}
	}
	return Forbidden
}
