package iam

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
)

// Identity is the read-only view of an account used for authentication.
// It is treated as immutable for the duration of one request.
type Identity struct {
	ID        int64
	Email     string
	Username  string
	Name      string
	Active    bool
	RoleNames []string
}

// IdentityResolver maps an email or id to an Identity.
// Both methods return (nil, nil) when no account matches.
type IdentityResolver interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id int64) (*Identity, error)
}

// CredentialSource returns the identity together with its stored password hash.
// It returns (nil, "", nil) when no account matches.
type CredentialSource interface {
	CredentialFor(ctx context.Context, email string) (*Identity, string, error)
}

// LoginRecorder is notified of successful logins.
type LoginRecorder interface {
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// NormalizeEmail canonicalizes an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StoreResolver implements IdentityResolver, CredentialSource and
// LoginRecorder over the user repository.
type StoreResolver struct {
	users repository.UserRepository
}

// NewStoreResolver creates a resolver reading from the user repository.
func NewStoreResolver(users repository.UserRepository) *StoreResolver {
	return &StoreResolver{users: users}
}

// FindByEmail resolves an identity and its current role names by email.
func (s *StoreResolver) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	identity, _, err := s.CredentialFor(ctx, email)
	return identity, err
}

// FindByID resolves an identity and its current role names by id.
func (s *StoreResolver) FindByID(ctx context.Context, id int64) (*Identity, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return s.hydrate(ctx, user)
}

// CredentialFor resolves an identity and returns its stored bcrypt hash.
func (s *StoreResolver) CredentialFor(ctx context.Context, email string) (*Identity, string, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("resolve identity: %w", err)
	}
	identity, err := s.hydrate(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return identity, user.PasswordHash, nil
}

// TouchLastLogin records the time of a successful login.
func (s *StoreResolver) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return s.users.TouchLastLogin(ctx, userID, at)
}

func (s *StoreResolver) hydrate(ctx context.Context, user *models.User) (*Identity, error) {
	roles, err := s.users.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles for user %d: %w", user.ID, err)
	}
	return identityFromModel(user, roles), nil
}

func identityFromModel(user *models.User, roles []string) *Identity {
	if roles == nil {
		roles = []string{}
	}
	return &Identity{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Name:      user.Name,
		Active:    user.Active,
		RoleNames: slices.Clone(roles),
	}
}
