package iam

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/config"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/telemetry"
)

// SeedReport summarizes one seeding run.
type SeedReport struct {
	RolesCreated []string
	AdminCreated bool
	// Errors holds every step that failed. Seeding continues past failures.
	Errors []error
}

// AdminSeeder ensures the baseline roles exist and, when configured, creates
// the first administrator. Running it repeatedly is a no-op.
type AdminSeeder struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	admin    config.AdminSeedConfig
	hashCost int
}

// NewAdminSeeder creates a seeder. hashCost <= 0 uses PasswordHashCost.
func NewAdminSeeder(users repository.UserRepository, roles repository.RoleRepository, admin config.AdminSeedConfig, hashCost int) *AdminSeeder {
	if hashCost <= 0 {
		hashCost = PasswordHashCost
	}
	return &AdminSeeder{users: users, roles: roles, admin: admin, hashCost: hashCost}
}

// Seed runs all seeding steps. Failures are logged and collected, never returned.
func (s *AdminSeeder) Seed(ctx context.Context) SeedReport {
	ctx, span := telemetry.StartSpan(ctx, "pmsapi/services/iam", "iam.Seed")
	defer span.End()

	var report SeedReport

	for _, def := range auth.BaselineRoles {
		created, err := s.ensureRole(ctx, def)
		if err != nil {
			log.Printf("seed: failed to ensure role %s: %v", def.Name, err)
			telemetry.RecordError(span, err)
			report.Errors = append(report.Errors, err)
			continue
		}
		if created {
			log.Printf("seed: created role %s", def.Name)
			report.RolesCreated = append(report.RolesCreated, def.Name)
		}
	}

	created, err := s.ensureAdmin(ctx)
	if err != nil {
		log.Printf("seed: failed to create admin user: %v", err)
		telemetry.RecordError(span, err)
		report.Errors = append(report.Errors, err)
	}
	report.AdminCreated = created

	telemetry.AddEvent(span, "seed.completed",
		attribute.Int("roles_created", len(report.RolesCreated)),
		attribute.Bool("admin_created", report.AdminCreated),
	)
	return report
}

func (s *AdminSeeder) ensureRole(ctx context.Context, def auth.RoleDefinition) (bool, error) {
	exists, err := s.roles.ExistsByName(ctx, def.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.roles.Create(ctx, &models.Role{Name: def.Name, Description: def.Description}); err != nil {
		// Another instance may have won the race
		if exists, checkErr := s.roles.ExistsByName(ctx, def.Name); checkErr == nil && exists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *AdminSeeder) ensureAdmin(ctx context.Context) (bool, error) {
	if !s.admin.Enabled() {
		log.Println("seed: admin credentials not configured, skipping admin creation")
		return false, nil
	}

	email := NormalizeEmail(s.admin.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		log.Printf("seed: admin user %s already exists", email)
		return false, nil
	}

	// Without the ADMIN role no account is created, so a later run can retry.
	adminRole, err := s.roles.GetByName(ctx, auth.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("look up ADMIN role: %w", err)
	}

	hash, err := HashPassword(s.admin.Password, s.hashCost)
	if err != nil {
		return false, err
	}

	name := s.admin.Name
	if name == "" {
		name = "System Administrator"
	}
	user := &models.User{
		Name:         name,
		Username:     strings.TrimSpace(s.admin.Username),
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.CreateWithRoles(ctx, user, []int64{adminRole.ID}); err != nil {
		return false, err
	}

	log.Printf("seed: created admin user %s", email)
	return true, nil
}
