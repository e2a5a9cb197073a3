package iam

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/telemetry"
)

// iamService implements the Service interface over the repositories.
type iamService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	hashCost int
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
type IAMServiceDependencies struct {
	Users repository.UserRepository
	Roles repository.RoleRepository

	// HashCost is the bcrypt cost for new passwords. Zero uses PasswordHashCost.
	HashCost int
}

// NewIAMService creates the admin service.
func NewIAMService(deps IAMServiceDependencies) (Service, error) {
	if deps.Users == nil || deps.Roles == nil {
		return nil, fmt.Errorf("iam service requires user and role repositories")
	}
	cost := deps.HashCost
	if cost <= 0 {
		cost = PasswordHashCost
	}
	return &iamService{users: deps.Users, roles: deps.Roles, hashCost: cost}, nil
}

// =========================================================================
// Users
// =========================================================================

func (s *iamService) CreateUser(ctx context.Context, in CreateUserInput) (*Identity, error) {
	ctx, span := telemetry.StartSpan(ctx, "pmsapi/services/iam", "iam.CreateUser")
	defer span.End()

	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	if err := s.checkUnique(ctx, email, username); err != nil {
		return nil, err
	}

	// Resolve roles before writing anything; the insert itself is one transaction
	roles, err := s.rolesByName(ctx, in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.hashCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	roleIDs := make([]int64, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}
	if err := s.users.CreateWithRoles(ctx, user, roleIDs); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.Int64(telemetry.AttrUserID, user.ID))
	return s.identity(ctx, user)
}

func (s *iamService) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*Identity, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email != user.Email {
			if err := s.checkUnique(ctx, email, ""); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != user.Username {
			if err := s.checkUnique(ctx, "", username); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password, s.hashCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.Active != nil {
		user.Active = *in.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.identity(ctx, user)
}

func (s *iamService) DeactivateUser(ctx context.Context, id int64) error {
	if err := s.users.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

func (s *iamService) GetUser(ctx context.Context, id int64) (*Identity, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.identity(ctx, user)
}

func (s *iamService) ListUsers(ctx context.Context, filter string) ([]Identity, error) {
	// Compile first so a bad filter fails before any database work
	if _, err := compileFilter(filter); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	identities, err := s.identities(ctx, users)
	if err != nil {
		return nil, err
	}
	return FilterIdentities(identities, filter)
}

func (s *iamService) ListUsersByRole(ctx context.Context, roleName string) ([]Identity, error) {
	users, err := s.users.ListByRole(ctx, auth.NormalizeRole(roleName))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return s.identities(ctx, users)
}

// =========================================================================
// Roles
// =========================================================================

func (s *iamService) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	name = auth.NormalizeRole(name)

	exists, err := s.roles.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check role: %w", err)
	}
	if exists {
		return nil, ErrRoleExists
	}

	role := &models.Role{Name: name, Description: strings.TrimSpace(description)}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (s *iamService) GetRole(ctx context.Context, id int64) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (s *iamService) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := s.roles.GetByName(ctx, auth.NormalizeRole(name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

func (s *iamService) UpdateRole(ctx context.Context, id int64, in UpdateRoleInput) (*models.Role, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := auth.NormalizeRole(*in.Name)
		if name != role.Name {
			if slices.Contains(auth.AllRoles(), role.Name) {
				return nil, ErrProtectedRole
			}
			exists, err := s.roles.ExistsByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("check role: %w", err)
			}
			if exists {
				return nil, ErrRoleExists
			}
			role.Name = name
		}
	}
	if in.Description != nil {
		role.Description = strings.TrimSpace(*in.Description)
	}

	if err := s.roles.Update(ctx, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return role, nil
}

func (s *iamService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (s *iamService) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if slices.Contains(auth.AllRoles(), role.Name) {
		return ErrProtectedRole
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

func (s *iamService) AssignRole(ctx context.Context, userID, roleID int64) (*Identity, error) {
	user, role, err := s.userAndRole(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.roles.AssignToUser(ctx, user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	return s.identity(ctx, user)
}

func (s *iamService) RemoveRole(ctx context.Context, userID, roleID int64) (*Identity, error) {
	user, role, err := s.userAndRole(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.roles.RemoveFromUser(ctx, user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("remove role: %w", err)
	}
	return s.identity(ctx, user)
}

// =========================================================================
// Helpers
// =========================================================================

func (s *iamService) getUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *iamService) userAndRole(ctx context.Context, userID, roleID int64) (*models.User, *models.Role, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	return user, role, nil
}

// checkUnique verifies that a non-empty email or username is not already taken.
func (s *iamService) checkUnique(ctx context.Context, email, username string) error {
	if email != "" {
		taken, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}
	}
	if username != "" {
		taken, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return ErrUsernameTaken
		}
	}
	return nil
}

// rolesByName resolves role names, failing on the first unknown one.
func (s *iamService) rolesByName(ctx context.Context, names []string) ([]*models.Role, error) {
	seen := make(map[string]struct{}, len(names))
	roles := make([]*models.Role, 0, len(names))
	for _, raw := range names {
		name := auth.NormalizeRole(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		role, err := s.roles.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
			}
			return nil, fmt.Errorf("get role %s: %w", name, err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *iamService) identity(ctx context.Context, user *models.User) (*Identity, error) {
	roles, err := s.users.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get roles for user %d: %w", user.ID, err)
	}
	return identityFromModel(user, roles), nil
}

func (s *iamService) identities(ctx context.Context, users []models.User) ([]Identity, error) {
	result := make([]Identity, 0, len(users))
	for i := range users {
		identity, err := s.identity(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *identity)
	}
	return result, nil
}
