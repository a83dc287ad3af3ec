// Package roles owns role entities and user-role assignments. It is the
// single writer of everything that can change a user's effective permission
// set, which is why every mutation here drives decision-cache invalidation.
package roles

import (
	"errors"
	"time"

	"github.com/mealbridge/mealbridge/internal/catalog"
)

// Role is a named, reusable set of permissions assignable to users.
type Role struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Permissions []catalog.Permission `json:"permissions"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Summary is the listing projection of a role.
type Summary struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PermissionCount int       `json:"permissionCount"`
	UserCount       int       `json:"userCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Assignment links a user to a role.
type Assignment struct {
	UserID     int64     `json:"userId"`
	RoleID     int64     `json:"roleId"`
	AssignedAt time.Time `json:"assignedAt"`
}

// Patch describes a partial role update. Nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	Permissions *[]catalog.Permission
}

// DeleteResult reports the outcome of a role deletion.
type DeleteResult struct {
	// AssignmentsRemoved counts the user-role edges cascaded away. A non-zero
	// value means the role was still in use; deletion proceeds regardless and
	// the affected users lose the role's permissions immediately.
	AssignmentsRemoved int
}

// Typed errors surfaced to administrative callers.
var (
	ErrNotFound          = errors.New("roles: not found")
	ErrUserNotFound      = errors.New("roles: user not found")
	ErrDuplicateName     = errors.New("roles: duplicate role name")
	ErrInvalidPermission = errors.New("roles: permission not in catalog")
	ErrNameRequired      = errors.New("roles: role name required")
)
