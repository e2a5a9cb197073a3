package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
)

var _ UserRepository = (*BunUserRepository)(nil)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user into the database
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateWithRoles inserts a user and its role assignments in one transaction.
// If any assignment fails the user row is rolled back.
func (r *BunUserRepository) CreateWithRoles(ctx context.Context, user *models.User, roleIDs []int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		for _, roleID := range roleIDs {
			_, err := tx.NewInsert().
				Model(&models.UserRole{UserID: user.ID, RoleID: roleID}).
				On("CONFLICT DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("assign role %d: %w", roleID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a user by their ID
func (r *BunUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by ID: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by their email
func (r *BunUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("u.email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found with email: %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ExistsByEmail reports whether an account with the email exists
func (r *BunUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("u.email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// ExistsByUsername reports whether an account with the username exists
func (r *BunUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("u.username = ?", username).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// Update updates an existing user
func (r *BunUserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(result, "user not found: %d", user.ID)
}

// SetActive enables or disables an account without touching its other columns
func (r *BunUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return requireRow(result, "user not found: %d", id)
}

// TouchLastLogin updates the last_login_at timestamp for a user
func (r *BunUserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// List retrieves all users ordered by id
func (r *BunUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListByRole retrieves every user holding the named role
func (r *BunUserRepository) ListByRole(ctx context.Context, roleName string) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Join("JOIN user_roles AS ur ON ur.user_id = u.id").
		Join("JOIN roles AS r ON r.id = ur.role_id").
		Where("r.name = ?", roleName).
		Order("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// RoleNames returns the role names assigned to a user
func (r *BunUserRepository) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		Column("r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Order("r.name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("get user role names: %w", err)
	}
	return names, nil
}

// requireRow maps a zero-row write to ErrNotFound.
func requireRow(result sql.Result, format string, args ...any) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return nil
}
