package auth

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var casbinModelContent string

// AnonymousSubject is the casbin subject recorded for public routes.
const AnonymousSubject = "anonymous"

// RouteGrant is one (role, path pattern, method) entry of the route table.
type RouteGrant struct {
	Role   string `json:"role"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// PolicyRegistry mirrors every RoutePolicy registered on the router as casbin
// policies, one "p, role, path, method" line per allowed role. Request-time
// authorization uses Check on the attached RoutePolicy; the registry answers
// introspection queries (which routes may a role call) over the same data.
type PolicyRegistry struct {
	enforcer *casbin.SyncedEnforcer
}

// NewPolicyRegistry creates an in-memory enforcer from the embedded model.
func NewPolicyRegistry() (*PolicyRegistry, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	return &PolicyRegistry{enforcer: enforcer}, nil
}

// Register records the policy for method+pattern. Pattern uses chi syntax
// ("/api/users/{id}"), which keyMatch3 understands.
func (r *PolicyRegistry) Register(method, pattern string, policy RoutePolicy) error {
	subjects := policy.AllowedRoles()
	if policy.IsPublic() {
		subjects = []string{AnonymousSubject}
	}
	for _, sub := range subjects {
		if _, err := r.enforcer.AddPolicy(sub, pattern, method); err != nil {
			return fmt.Errorf("register %s %s for %s: %w", method, pattern, sub, err)
		}
	}
	return nil
}

// Allows reports whether any of roles may call method on the concrete path.
// Public routes are allowed for everyone.
func (r *PolicyRegistry) Allows(roles []string, method, path string) (bool, error) {
	subjects := append([]string{AnonymousSubject}, roles...)
	for _, sub := range subjects {
		ok, err := r.enforcer.Enforce(sub, path, method)
		if err != nil {
			return false, fmt.Errorf("enforce %s %s for %s: %w", method, path, sub, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// GrantsFor lists the routes reachable by any of roles, sorted by path then method.
func (r *PolicyRegistry) GrantsFor(roles []string) ([]RouteGrant, error) {
	var grants []RouteGrant
	for _, role := range roles {
		rules, err := r.enforcer.GetFilteredPolicy(0, role)
		if err != nil {
			return nil, fmt.Errorf("list policies for %s: %w", role, err)
		}
		grants = append(grants, toGrants(rules)...)
	}
	sortGrants(grants)
	return grants, nil
}

// Grants lists the full route table.
func (r *PolicyRegistry) Grants() ([]RouteGrant, error) {
	rules, err := r.enforcer.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	grants := toGrants(rules)
	sortGrants(grants)
	return grants, nil
}

func toGrants(rules [][]string) []RouteGrant {
	grants := make([]RouteGrant, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		grants = append(grants, RouteGrant{Role: rule[0], Path: rule[1], Method: rule[2]})
	}
	return grants
}

func sortGrants(grants []RouteGrant) {
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Path != grants[j].Path {
			return grants[i].Path < grants[j].Path
		}
		if grants[i].Method != grants[j].Method {
			return grants[i].Method < grants[j].Method
		}
		return grants[i].Role < grants[j].Role
	})
}
