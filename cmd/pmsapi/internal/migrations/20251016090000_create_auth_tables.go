package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251016090000, down_20251016090000)
}

// up_20251016090000 creates the users, roles and user_roles tables
func up_20251016090000(ctx context.Context, db *bun.DB) error {
	// 1. Create users table
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	fmt.Println(" OK")

	// 2. Create roles table
	fmt.Print(" [up] creating roles table...")
	_, err = db.NewCreateTable().
		Model((*models.Role)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create roles table: %w", err)
	}
	fmt.Println(" OK")

	// 3. Create user_roles table. SQLite cannot add constraints after the fact,
	// so the foreign keys are declared inline.
	fmt.Print(" [up] creating user_roles table...")
	_, err = db.NewCreateTable().
		Model((*models.UserRole)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		ForeignKey(`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user_roles table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_user_roles_role_id ON user_roles(role_id)`)
	if err != nil {
		return fmt.Errorf("failed to create user_roles role_id index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251016090000 drops the auth tables in reverse dependency order
func down_20251016090000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping auth tables...")

	tables := []interface{}{
		(*models.UserRole)(nil),
		(*models.Role)(nil),
		(*models.User)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}
