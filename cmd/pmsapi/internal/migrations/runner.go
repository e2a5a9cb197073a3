package migrations

import (
	"context"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// NewMigrator returns a migrator over the registered migrations.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations)
}

// Apply creates the tracking tables if needed and runs every pending
// migration under the migration lock. A zero group means nothing was pending.
func Apply(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialize migrator: %w", err)
	}

	var group *migrate.MigrationGroup
	err := withLock(ctx, migrator, func() error {
		var err error
		group, err = migrator.Migrate(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// Rollback reverts the most recently applied group under the migration lock.
func Rollback(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)

	var group *migrate.MigrationGroup
	err := withLock(ctx, migrator, func() error {
		var err error
		group, err = migrator.Rollback(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rollback: %w", err)
	}
	return group, nil
}

// Pending lists migrations that have not been applied. The tracking tables
// must exist.
func Pending(ctx context.Context, db *bun.DB) (migrate.MigrationSlice, error) {
	ms, err := NewMigrator(db).MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("get migration status: %w", err)
	}
	return ms.Unapplied(), nil
}

func withLock(ctx context.Context, migrator *migrate.Migrator, fn func() error) error {
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			log.Printf("Warning: failed to release migration lock: %v", err)
		}
	}()
	return fn()
}
