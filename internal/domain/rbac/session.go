package rbac

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore holds the active role chosen in each session. Implementations
// may persist however they like; concurrent switches in one session are
// last-write-wins.
type SessionStore interface {
	ActiveRole(sessionID string) (uuid.UUID, bool)
	SetActiveRole(sessionID string, roleID uuid.UUID)
	Clear(sessionID string)
}

// MemorySessionStore keeps active roles in process memory. Sessions do not
// survive a restart; the next ActiveRole call re-derives the default.
type MemorySessionStore struct {
	mu    sync.RWMutex
	roles map[string]uuid.UUID
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{roles: make(map[string]uuid.UUID)}
}

func (s *MemorySessionStore) ActiveRole(sessionID string) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roles[sessionID]
	return id, ok
}

func (s *MemorySessionStore) SetActiveRole(sessionID string, roleID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[sessionID] = roleID
}

func (s *MemorySessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, sessionID)
}
