package auth

import (
	"context"

	"github.com/google/uuid"
)

// SessionContext identifies the authenticated caller for the duration of one
// request. Services receive it explicitly as an argument; nothing reads
// session state from a global.
type SessionContext struct {
	UserID         uuid.UUID
	SessionID      string
	ActiveRoleID   *uuid.UUID
	ActiveRoleName string
}

// ActiveRole reports the caller's active role id, or false when the caller
// has not assumed a role in this session.
func (s *SessionContext) ActiveRole() (uuid.UUID, bool) {
	if s == nil || s.ActiveRoleID == nil {
		return uuid.Nil, false
	}
	return *s.ActiveRoleID, true
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, sess *SessionContext) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext retrieves the session placed by the auth middleware, or
// nil for unauthenticated requests.
func SessionFromContext(ctx context.Context) *SessionContext {
	sess, _ := ctx.Value(sessionKey).(*SessionContext)
	return sess
}
