package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

// mockRepo is a map-backed Repository for tests.
type mockRepo struct {
	roles       map[uuid.UUID]*Role
	assignments map[uuid.UUID][]uuid.UUID // userID -> ordered roleIDs
	switches    []*RoleSwitchLog
	failSwitch  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		roles:       make(map[uuid.UUID]*Role),
		assignments: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockRepo) addRole(name string, perms ...string) *Role {
	role := &Role{
		ID:          uuid.New(),
		Name:        name,
		DisplayName: name,
		Permissions: perms,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	m.roles[role.ID] = role
	return role
}

func (m *mockRepo) assign(userID uuid.UUID, roleIDs ...uuid.UUID) {
	m.assignments[userID] = append(m.assignments[userID], roleIDs...)
}

func (m *mockRepo) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (m *mockRepo) ListRoles(ctx context.Context) ([]*Role, error) {
	var out []*Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepo) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]*Role, error) {
	var out []*Role
	for _, id := range m.assignments[userID] {
		if role, ok := m.roles[id]; ok && role.Active {
			out = append(out, role)
		}
	}
	return out, nil
}

func (m *mockRepo) UserHasRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	for _, id := range m.assignments[userID] {
		if id == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CountUserRoles(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(m.assignments[userID]), nil
}

func (m *mockRepo) RecordSwitch(ctx context.Context, entry *RoleSwitchLog) error {
	if m.failSwitch != nil {
		return m.failSwitch
	}
	entry.ID = uuid.New()
	m.switches = append(m.switches, entry)
	return nil
}

func staticPolicy(p Policy) PolicySource {
	return PolicyFunc(func(ctx context.Context) (Policy, error) { return p, nil })
}

func newTestService(repo *mockRepo, p Policy) (*Service, *MemorySessionStore) {
	sessions := NewMemorySessionStore()
	svc := NewService(repo, sessions, staticPolicy(p), zerolog.Nop())
	return svc, sessions
}

func testSession(userID uuid.UUID) *auth.SessionContext {
	return &auth.SessionContext{UserID: userID, SessionID: "sess-" + userID.String()[:8]}
}

func TestActiveRole_DefaultsToFirstAssignedAndPersists(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	doctor := repo.addRole("doctor", "record_diagnosis")
	userID := uuid.New()
	repo.assign(userID, nurse.ID, doctor.ID)

	svc, sessions := newTestService(repo, Policy{RequireRoleSwitching: true})
	sess := testSession(userID)

	role, err := svc.ActiveRole(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.ID != nurse.ID {
		t.Errorf("expected first assigned role nurse, got %s", role.Name)
	}

	// The default must persist in the session
	if stored, ok := sessions.ActiveRole(sess.SessionID); !ok || stored != nurse.ID {
		t.Errorf("expected session to persist nurse as active role")
	}

	// Repeated calls return the same role
	again, err := svc.ActiveRole(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != nurse.ID {
		t.Errorf("expected persisted default nurse, got %s", again.Name)
	}
}

func TestActiveRole_NoRoles(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo, Policy{})

	role, err := svc.ActiveRole(context.Background(), testSession(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != nil {
		t.Errorf("expected nil role for user without assignments, got %s", role.Name)
	}
}

func TestCanPerform_ReflectsActiveRole(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	userID := uuid.New()
	repo.assign(userID, nurse.ID)

	svc, _ := newTestService(repo, Policy{RequireRoleSwitching: true})
	sess := testSession(userID)

	ok, err := svc.CanPerform(context.Background(), sess, "record_vitals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected nurse to hold record_vitals")
	}

	ok, err = svc.CanPerform(context.Background(), sess, "record_diagnosis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected nurse to lack record_diagnosis")
	}
}

func TestSwitchRole_Success(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	doctor := repo.addRole("doctor", "record_diagnosis")
	userID := uuid.New()
	repo.assign(userID, nurse.ID, doctor.ID)

	svc, sessions := newTestService(repo, Policy{AllowMultiRoleUsers: true})
	sess := testSession(userID)

	// Establish nurse as the default first
	if _, err := svc.ActiveRole(context.Background(), sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	role, err := svc.SwitchRole(context.Background(), sess, doctor.ID, SwitchMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.ID != doctor.ID {
		t.Errorf("expected doctor, got %s", role.Name)
	}

	if stored, _ := sessions.ActiveRole(sess.SessionID); stored != doctor.ID {
		t.Error("expected session active role to be doctor")
	}

	if len(repo.switches) != 1 {
		t.Fatalf("expected 1 switch log entry, got %d", len(repo.switches))
	}
	entry := repo.switches[0]
	if entry.ToRoleID != doctor.ID {
		t.Errorf("expected to_role doctor, got %s", entry.ToRoleID)
	}
	if entry.FromRoleID == nil || *entry.FromRoleID != nurse.ID {
		t.Error("expected from_role to capture the previous active role")
	}
	if entry.IPAddress != "10.0.0.1" {
		t.Errorf("expected ip captured, got %q", entry.IPAddress)
	}
}

func TestSwitchRole_UnassignedRole(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	doctor := repo.addRole("doctor", "record_diagnosis")
	userID := uuid.New()
	repo.assign(userID, nurse.ID)

	svc, _ := newTestService(repo, Policy{AllowMultiRoleUsers: true})

	_, err := svc.SwitchRole(context.Background(), testSession(userID), doctor.ID, SwitchMeta{})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestSwitchRole_UnknownRole(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo, Policy{AllowMultiRoleUsers: true})

	_, err := svc.SwitchRole(context.Background(), testSession(uuid.New()), uuid.New(), SwitchMeta{})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestSwitchRole_MultiRoleDisabled(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	doctor := repo.addRole("doctor", "record_diagnosis")
	userID := uuid.New()
	repo.assign(userID, nurse.ID, doctor.ID)

	svc, _ := newTestService(repo, Policy{AllowMultiRoleUsers: false})

	_, err := svc.SwitchRole(context.Background(), testSession(userID), doctor.ID, SwitchMeta{})
	if !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation, got %v", err)
	}
}

func TestSwitchRole_SingleRoleAllowedWhenMultiRoleDisabled(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	userID := uuid.New()
	repo.assign(userID, nurse.ID)

	svc, _ := newTestService(repo, Policy{AllowMultiRoleUsers: false})

	role, err := svc.SwitchRole(context.Background(), testSession(userID), nurse.ID, SwitchMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.ID != nurse.ID {
		t.Errorf("expected nurse, got %s", role.Name)
	}
}

func TestAuthorize_UnionWhenSwitchingNotRequired(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	doctor := repo.addRole("doctor", "record_diagnosis")
	userID := uuid.New()
	repo.assign(userID, nurse.ID, doctor.ID)

	svc, sessions := newTestService(repo, Policy{AllowMultiRoleUsers: true, RequireRoleSwitching: false})
	sess := testSession(userID)

	// Active role is nurse, but union still grants the doctor permission
	sessions.SetActiveRole(sess.SessionID, nurse.ID)

	if err := svc.Authorize(context.Background(), sess, "record_diagnosis"); err != nil {
		t.Errorf("expected union authorization to pass, got %v", err)
	}

	err := svc.Authorize(context.Background(), sess, "dispense_drugs")
	var fe *ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if fe.Permission != "dispense_drugs" {
		t.Errorf("expected denial to carry the permission, got %q", fe.Permission)
	}
}

func TestAuthorize_ActiveRoleOnlyWhenSwitchingRequired(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	doctor := repo.addRole("doctor", "record_diagnosis")
	userID := uuid.New()
	repo.assign(userID, nurse.ID, doctor.ID)

	svc, sessions := newTestService(repo, Policy{AllowMultiRoleUsers: true, RequireRoleSwitching: true})
	sess := testSession(userID)
	sessions.SetActiveRole(sess.SessionID, nurse.ID)

	err := svc.Authorize(context.Background(), sess, "record_diagnosis")
	var fe *ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if fe.Role != "nurse" {
		t.Errorf("expected denial to name the active role, got %q", fe.Role)
	}

	if err := svc.Authorize(context.Background(), sess, "record_vitals"); err != nil {
		t.Errorf("expected active role to grant record_vitals, got %v", err)
	}
}

func TestAuthorize_NilSession(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo, Policy{})

	err := svc.Authorize(context.Background(), nil, "record_vitals")
	var fe *ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError for nil session, got %v", err)
	}
}

func TestRole_WildcardPermission(t *testing.T) {
	admin := &Role{Name: "admin", Permissions: []string{PermWildcard}}
	if !admin.HasPermission("anything_at_all") {
		t.Error("expected wildcard role to grant every permission")
	}
}

func TestLookupActiveRole(t *testing.T) {
	repo := newMockRepo()
	nurse := repo.addRole("nurse", "record_vitals")
	userID := uuid.New()
	repo.assign(userID, nurse.ID)

	svc, _ := newTestService(repo, Policy{})

	roleID, roleName, found, err := svc.LookupActiveRole(context.Background(), userID, "sess-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || roleID != nurse.ID || roleName != "nurse" {
		t.Errorf("expected nurse lookup, got %s/%s found=%v", roleID, roleName, found)
	}

	_, _, found, err = svc.LookupActiveRole(context.Background(), uuid.New(), "sess-y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected no role for unknown user")
	}
}
