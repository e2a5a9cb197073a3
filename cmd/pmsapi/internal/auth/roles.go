package auth

import "strings"

// Baseline role tags. Roles are flat: ADMIN does not imply MANAGER.
const (
	RoleAdmin     = "ADMIN"
	RoleManager   = "MANAGER"
	RoleDeveloper = "DEVELOPER"
	RoleTester    = "TESTER"
)

// RoleDefinition describes a role created at startup.
type RoleDefinition struct {
	Name        string
	Description string
}

// BaselineRoles are ensured to exist on every startup.
var BaselineRoles = []RoleDefinition{
	{Name: RoleAdmin, Description: "Administrator role"},
	{Name: RoleManager, Description: "Project Manager role"},
	{Name: RoleDeveloper, Description: "Developer role"},
	{Name: RoleTester, Description: "Tester/QA role"},
}

// AllRoles returns every baseline role tag.
func AllRoles() []string {
	names := make([]string, 0, len(BaselineRoles))
	for _, r := range BaselineRoles {
		names = append(names, r.Name)
	}
	return names
}

// NormalizeRole canonicalizes a role tag for storage and comparison.
func NormalizeRole(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
