package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/bunx"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/migrations"
)

// setupTestDB opens a migrated in-memory SQLite database that lives for the test.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func createUser(t *testing.T, repo UserRepository, username string, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "User " + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$12$hash",
		Active:       active,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

func createRole(t *testing.T, repo RoleRepository, name string) *models.Role {
	t.Helper()
	role := &models.Role{Name: name, Description: name + " role"}
	require.NoError(t, repo.Create(context.Background(), role))
	require.NotZero(t, role.ID)
	return role
}

func newRole(name string) *models.Role {
	return &models.Role{Name: name}
}
