package hospitalconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/domain/rbac"
	"github.com/careflow/careflow/internal/platform/auth"
)

type allowAll struct{}

func (allowAll) Authorize(ctx context.Context, sess *auth.SessionContext, permission string) error {
	return nil
}

type denyAll struct{}

func (denyAll) Authorize(ctx context.Context, sess *auth.SessionContext, permission string) error {
	return &rbac.ForbiddenError{Role: "nurse", Permission: permission}
}

func newConfigContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/hospital-config", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/hospital-config", nil)
	}
	sess := &auth.SessionContext{UserID: uuid.New(), SessionID: "sess-1"}
	req = req.WithContext(auth.WithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_GetConfig(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()), allowAll{})

	c, rec := newConfigContext(http.MethodGet, "")
	if err := h.GetConfig(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "General Hospital") {
		t.Errorf("expected hospital name in response, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateConfig_OK(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()), allowAll{})

	body := `{
		"hospital_name": "City Hospital",
		"operating_mode": "standard",
		"allow_multi_role_users": true,
		"require_role_switching": true,
		"billing_interrupt_enabled": true,
		"compliance_rules": {"require_vitals_before_consultation": true}
	}`
	c, rec := newConfigContext(http.MethodPut, body)
	if err := h.UpdateConfig(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"require_vitals_before_consultation":true`) {
		t.Errorf("expected rules echoed back, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateConfig_UnknownRuleKey(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()), allowAll{})

	body := `{
		"hospital_name": "City Hospital",
		"operating_mode": "standard",
		"compliance_rules": {"require_handwashing": true}
	}`
	c, _ := newConfigContext(http.MethodPut, body)

	err := h.UpdateConfig(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown compliance rule, got %v", err)
	}
}

func TestHandler_UpdateConfig_UnknownTopLevelKey(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()), allowAll{})

	body := `{"hospital_name": "City Hospital", "operating_mode": "standard", "mystery": 1}`
	c, _ := newConfigContext(http.MethodPut, body)

	err := h.UpdateConfig(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown key, got %v", err)
	}
}

func TestHandler_UpdateConfig_Forbidden(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()), denyAll{})

	body := `{"hospital_name": "City Hospital", "operating_mode": "standard"}`
	c, _ := newConfigContext(http.MethodPut, body)

	err := h.UpdateConfig(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
