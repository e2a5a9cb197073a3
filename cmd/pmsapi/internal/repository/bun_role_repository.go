package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
)

var _ RoleRepository = (*BunRoleRepository)(nil)

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db *bun.DB) *BunRoleRepository {
	return &BunRoleRepository{db: db}
}

// Create inserts a new role
func (r *BunRoleRepository) Create(ctx context.Context, role *models.Role) error {
	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *BunRoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// GetByName retrieves a role by name
func (r *BunRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("r.name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

// ExistsByName reports whether a role with the name exists
func (r *BunRoleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		Where("r.name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check role name: %w", err)
	}
	return exists, nil
}

// List retrieves all roles
func (r *BunRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("r.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Update writes the role's name and description
func (r *BunRoleRepository) Update(ctx context.Context, role *models.Role) error {
	result, err := r.db.NewUpdate().
		Model(role).
		Column("name", "description").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return requireRow(result, "role not found: %d", role.ID)
}

// Delete deletes a role by ID. Assignments cascade.
func (r *BunRoleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return requireRow(result, "role not found: %d", id)
}

// AssignToUser grants a role to a user
func (r *BunRoleRepository) AssignToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.NewInsert().
		Model(&models.UserRole{UserID: userID, RoleID: roleID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// RemoveFromUser revokes a role from a user
func (r *BunRoleRepository) RemoveFromUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.NewDelete().
		Model((*models.UserRole)(nil)).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}
