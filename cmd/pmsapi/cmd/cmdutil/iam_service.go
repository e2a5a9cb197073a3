package cmdutil

import (
	"fmt"

	"github.com/uptrace/bun"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/config"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/bunx"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
)

// IAMServiceOptions controls how the CLI constructs the IAM service.
type IAMServiceOptions struct {
	// HashCost is the bcrypt cost for passwords set by the command. Zero uses
	// iam.PasswordHashCost.
	HashCost int
}

// IAMServiceBundle bundles the service with its repositories and DB connection
// so callers can reuse them for seeding or direct lookups.
type IAMServiceBundle struct {
	Service iam.Service
	Users   repository.UserRepository
	Roles   repository.RoleRepository
	DB      *bun.DB
}

// Close releases the underlying database connection.
func (b *IAMServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// Seeder returns an admin seeder over the bundle's repositories.
func (b *IAMServiceBundle) Seeder(admin config.AdminSeedConfig, hashCost int) *iam.AdminSeeder {
	return iam.NewAdminSeeder(b.Users, b.Roles, admin, hashCost)
}

// NewIAMServiceBundle centralizes IAM service construction for CLI commands.
// It opens the database, wires repositories, and returns a ready-to-use service.
func NewIAMServiceBundle(cfg *config.Config, opts IAMServiceOptions) (*IAMServiceBundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	users := repository.NewBunUserRepository(db)
	roles := repository.NewBunRoleRepository(db)

	iamService, err := iam.NewIAMService(iam.IAMServiceDependencies{
		Users:    users,
		Roles:    roles,
		HashCost: opts.HashCost,
	})
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &IAMServiceBundle{
		Service: iamService,
		Users:   users,
		Roles:   roles,
		DB:      db,
	}, nil
}
