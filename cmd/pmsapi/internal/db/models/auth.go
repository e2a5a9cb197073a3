package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an account that can log in with email and password.
// PasswordHash stores a bcrypt hash; the plaintext is never persisted.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64      `bun:"id,pk,autoincrement"`
	Name         string     `bun:"name,notnull"`
	Username     string     `bun:"username,notnull,unique"`
	Email        string     `bun:"email,notnull,unique"`
	PasswordHash string     `bun:"password_hash,notnull"`
	Active       bool       `bun:"active,notnull"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
}

// Role is a named permission tag (e.g. ADMIN). Names are stored upper-case.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// UserRole links a user to a role. Assignments are flat; there is no inheritance.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID     int64     `bun:"user_id,pk"`
	RoleID     int64     `bun:"role_id,pk"`
	AssignedAt time.Time `bun:"assigned_at,nullzero,notnull,default:current_timestamp"`
}
