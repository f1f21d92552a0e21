package rbac

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides role and assignment reads plus the append-only switch
// log. Role and assignment writes are an external administrative concern.
type Repository interface {
	GetRole(ctx context.Context, id uuid.UUID) (*Role, error)
	ListRoles(ctx context.Context) ([]*Role, error)
	// ListUserRoles returns the user's active-flagged roles ordered by
	// assignment position.
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]*Role, error)
	UserHasRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	CountUserRoles(ctx context.Context, userID uuid.UUID) (int, error)
	RecordSwitch(ctx context.Context, entry *RoleSwitchLog) error
}
