package server

import (
	"context"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
)

// iamAdminService defines the exact IAM methods used by server handlers.
// The assertion below proves iam.Service satisfies it at compile time, and
// handler tests can substitute a narrower fake.
type iamAdminService interface {
	// User management
	CreateUser(ctx context.Context, in iam.CreateUserInput) (*iam.Identity, error)
	UpdateUser(ctx context.Context, id int64, in iam.UpdateUserInput) (*iam.Identity, error)
	DeactivateUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*iam.Identity, error)
	ListUsers(ctx context.Context, filter string) ([]iam.Identity, error)
	ListUsersByRole(ctx context.Context, roleName string) ([]iam.Identity, error)

	// Role CRUD
	CreateRole(ctx context.Context, name, description string) (*models.Role, error)
	GetRole(ctx context.Context, id int64) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	UpdateRole(ctx context.Context, id int64, in iam.UpdateRoleInput) (*models.Role, error)
	DeleteRole(ctx context.Context, id int64) error

	// Role assignment
	AssignRole(ctx context.Context, userID, roleID int64) (*iam.Identity, error)
	RemoveRole(ctx context.Context, userID, roleID int64) (*iam.Identity, error)
}

var _ iamAdminService = (iam.Service)(nil)

// loginService issues tokens for email/password credentials.
type loginService interface {
	Login(ctx context.Context, email, password string) (*iam.LoginResult, error)
}

var _ loginService = (*iam.CredentialVerifier)(nil)
