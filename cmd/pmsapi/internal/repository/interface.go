package repository

import (
	"context"
	"errors"
	"time"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// UserRepository exposes persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// CreateWithRoles inserts the user and its role assignments atomically.
	CreateWithRoles(ctx context.Context, user *models.User, roleIDs []int64) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, roleName string) ([]models.User, error)

	// RoleNames returns the names of every role assigned to the user, sorted.
	RoleNames(ctx context.Context, userID int64) ([]string, error)
}

// RoleRepository exposes persistence operations for roles and their assignments.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id int64) error

	// AssignToUser is idempotent: assigning an already held role is a no-op.
	AssignToUser(ctx context.Context, userID, roleID int64) error
	RemoveFromUser(ctx context.Context, userID, roleID int64) error
}
