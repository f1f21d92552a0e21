package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error // if set, Record returns this error
}

func (m *mockRecorder) Record(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// newAuditContext creates an echo context with an optional session attached.
func newAuditContext(method, path string, sess *auth.SessionContext) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if sess != nil {
		req = req.WithContext(auth.WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_QueueRead(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}
	userID := uuid.New()

	c, _ := newAuditContext(http.MethodGet, "/queues/dept-1",
		&auth.SessionContext{UserID: userID, ActiveRoleName: "nurse"})
	c.SetParamNames("departmentId")
	c.SetParamValues("dept-1")
	c.Set("request_id", "req-abc")

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 audit entry, got %d", rec.count())
	}
	entry := rec.last()
	if entry.UserID != userID.String() {
		t.Errorf("expected user_id %s, got %q", userID, entry.UserID)
	}
	if entry.ActiveRole != "nurse" {
		t.Errorf("expected active_role nurse, got %q", entry.ActiveRole)
	}
	if entry.Action != "read" {
		t.Errorf("expected action read, got %q", entry.Action)
	}
	if entry.Target != "queues" {
		t.Errorf("expected target queues, got %q", entry.Target)
	}
	if entry.DepartmentID != "dept-1" {
		t.Errorf("expected department_id dept-1, got %q", entry.DepartmentID)
	}
	if entry.RequestID != "req-abc" {
		t.Errorf("expected request_id req-abc, got %q", entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", entry.StatusCode)
	}
}

func TestAudit_RoleSwitch(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	c, _ := newAuditContext(http.MethodPost, "/auth/switch-role",
		&auth.SessionContext{UserID: uuid.New()})

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := rec.last()
	if entry.Action != "create" {
		t.Errorf("expected action create, got %q", entry.Action)
	}
	if entry.Target != "auth" {
		t.Errorf("expected target auth, got %q", entry.Target)
	}
}

func TestAudit_ConfigUpdate(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	c, _ := newAuditContext(http.MethodPut, "/hospital-config",
		&auth.SessionContext{UserID: uuid.New(), ActiveRoleName: "admin"})

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := rec.last()
	if entry.Action != "update" {
		t.Errorf("expected action update, got %q", entry.Action)
	}
	if entry.Target != "hospital-config" {
		t.Errorf("expected target hospital-config, got %q", entry.Target)
	}
}

func TestAudit_VisitMutationCarriesVisitID(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}
	visitID := uuid.New().String()

	c, _ := newAuditContext(http.MethodPost, "/queues/"+visitID+"/start",
		&auth.SessionContext{UserID: uuid.New(), ActiveRoleName: "doctor"})
	c.SetParamNames("visitId")
	c.SetParamValues(visitID)

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := rec.last()
	if entry.VisitID != visitID {
		t.Errorf("expected visit_id %s, got %q", visitID, entry.VisitID)
	}
}

func TestAudit_SkipsNonAuditablePaths(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	paths := []string{"/health", "/health/db", "/", "/other/path"}
	for _, path := range paths {
		c, _ := newAuditContext(http.MethodGet, path, nil)
		mw := Audit(logger, rec)
		if err := mw(okHandler)(c); err != nil {
			t.Fatalf("unexpected error for path %s: %v", path, err)
		}
	}

	if rec.count() != 0 {
		t.Errorf("expected 0 audit entries for non-auditable paths, got %d", rec.count())
	}
}

func TestAudit_RecorderError_DoesNotBreakRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{err: errors.New("audit sink unavailable")}

	c, _ := newAuditContext(http.MethodGet, "/queues/dept-1",
		&auth.SessionContext{UserID: uuid.New()})

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("expected no error even when recorder fails, got: %v", err)
	}
}

func TestAudit_NoRecorder_LogOnly(t *testing.T) {
	logger := zerolog.New(os.Stderr)

	c, _ := newAuditContext(http.MethodGet, "/queues/dept-1",
		&auth.SessionContext{UserID: uuid.New()})

	mw := Audit(logger)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudit_UnauthenticatedRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	c, _ := newAuditContext(http.MethodGet, "/queues/dept-1", nil)

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := rec.last()
	if entry.UserID != "" {
		t.Errorf("expected empty user_id, got %q", entry.UserID)
	}
}

func TestAudit_CapturesIPAndUserAgent(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/queues/dept-1", nil)
	req.Header.Set("User-Agent", "careflow-client/1.0")
	c := e.NewContext(req, httptest.NewRecorder())

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := rec.last()
	if entry.UserAgent != "careflow-client/1.0" {
		t.Errorf("expected user_agent careflow-client/1.0, got %q", entry.UserAgent)
	}
	if entry.IPAddress == "" {
		t.Error("expected non-empty IP address")
	}
}

func TestIsAuditablePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/queues/dept-1", true},
		{"/queues/checkin", true},
		{"/queues/my-queue", true},
		{"/api/v1/queues/dept-1", true},
		{"/api/v1/auth/switch-role", true},
		{"/api/v1/departments", false},
		{"/auth/switch-role", true},
		{"/auth/roles", true},
		{"/hospital-config", true},
		{"/health", false},
		{"/", false},
		{"/departments", false},
	}
	for _, tt := range tests {
		if got := isAuditablePath(tt.path); got != tt.want {
			t.Errorf("isAuditablePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{http.MethodGet, "read"},
		{http.MethodHead, "read"},
		{http.MethodPost, "create"},
		{http.MethodPut, "update"},
		{http.MethodPatch, "update"},
		{http.MethodDelete, "delete"},
		{http.MethodOptions, "read"},
	}
	for _, tt := range tests {
		if got := httpMethodToAction(tt.method); got != tt.want {
			t.Errorf("httpMethodToAction(%q) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestAuditTarget(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/queues/dept-1", "queues"},
		{"/api/v1/queues/dept-1", "queues"},
		{"/api/v1/hospital-config", "hospital-config"},
		{"/auth/switch-role", "auth"},
		{"/hospital-config", "hospital-config"},
		{"/", "unknown"},
	}
	for _, tt := range tests {
		if got := auditTarget(tt.path); got != tt.want {
			t.Errorf("auditTarget(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAuditRecorderFunc(t *testing.T) {
	var called bool
	fn := AuditRecorderFunc(func(entry AuditEntry) error {
		called = true
		return nil
	})

	if err := fn.Record(AuditEntry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected function to be called")
	}
}
