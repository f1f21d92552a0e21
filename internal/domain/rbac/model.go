package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Role groups a set of module-scoped capability strings. A role holding the
// wildcard permission grants everything.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// PermWildcard grants every permission.
const PermWildcard = "*"

// HasPermission reports whether the role grants the named permission.
func (r *Role) HasPermission(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission || p == PermWildcard {
			return true
		}
	}
	return false
}

// UserRole assigns a role to a user. Position orders a user's roles; the
// lowest position is the session default.
type UserRole struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	RoleID     uuid.UUID `json:"role_id"`
	Active     bool      `json:"active"`
	Position   int       `json:"position"`
	AssignedAt time.Time `json:"assigned_at"`
}

// RoleSwitchLog is one append-only audit record of a role switch. Rows are
// never updated or deleted.
type RoleSwitchLog struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	FromRoleID *uuid.UUID `json:"from_role_id,omitempty"`
	ToRoleID   uuid.UUID  `json:"to_role_id"`
	SessionID  string     `json:"session_id"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	SwitchedAt time.Time  `json:"switched_at"`
}
