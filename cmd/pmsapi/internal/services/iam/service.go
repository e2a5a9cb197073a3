package iam

import (
	"context"
	"errors"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrRoleNotFound  = errors.New("role not found")
	ErrEmailTaken    = errors.New("email is already registered")
	ErrUsernameTaken = errors.New("username is already taken")
	ErrRoleExists    = errors.New("role already exists")
	// ErrProtectedRole guards the baseline roles the route policies depend on.
	ErrProtectedRole = errors.New("baseline roles cannot be deleted or renamed")
)

// CreateUserInput carries the fields for a new account. Password is plaintext
// and is hashed before storage.
type CreateUserInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Roles    []string
}

// UpdateUserInput carries optional changes; nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Username *string
	Email    *string
	Password *string
	Active   *bool
}

// UpdateRoleInput carries optional role changes; nil fields are left untouched.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

// Service provides user and role administration.
//
// Authentication lives in CredentialVerifier and BearerAuthenticator; this
// interface only covers the out-of-band admin operations behind the
// role-gated routes and the CLI.
type Service interface {
	// =========================================================================
	// Users
	// =========================================================================

	// CreateUser creates an active account holding the given roles.
	// Unknown role names fail the whole request with ErrRoleNotFound.
	CreateUser(ctx context.Context, in CreateUserInput) (*Identity, error)

	// UpdateUser applies the non-nil fields of in.
	UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*Identity, error)

	// DeactivateUser disables the account. Existing tokens stop working on
	// the next request because the gate re-reads the active flag.
	DeactivateUser(ctx context.Context, id int64) error

	GetUser(ctx context.Context, id int64) (*Identity, error)

	// ListUsers returns every account matching the go-bexpr filter (empty = all).
	ListUsers(ctx context.Context, filter string) ([]Identity, error)

	ListUsersByRole(ctx context.Context, roleName string) ([]Identity, error)

	// =========================================================================
	// Roles
	// =========================================================================

	CreateRole(ctx context.Context, name, description string) (*models.Role, error)
	GetRole(ctx context.Context, id int64) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)

	// UpdateRole changes a role's name or description. Baseline roles keep
	// their names.
	UpdateRole(ctx context.Context, id int64, in UpdateRoleInput) (*models.Role, error)
	DeleteRole(ctx context.Context, id int64) error

	// AssignRole and RemoveRole return the user with its updated role set.
	AssignRole(ctx context.Context, userID, roleID int64) (*Identity, error)
	RemoveRole(ctx context.Context, userID, roleID int64) (*Identity, error)
}
