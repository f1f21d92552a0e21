package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

// AuditEntry captures who did what to which visit or configuration record.
// Entries are emitted as structured log events; downstream log shipping owns
// long-term retention.
type AuditEntry struct {
	UserID       string
	ActiveRole   string
	Action       string // read, create, update, delete
	Target       string // queues, auth, hospital-config, ...
	VisitID      string
	DepartmentID string
	Path         string
	Method       string
	IPAddress    string
	UserAgent    string
	Timestamp    time.Time
	RequestID    string
	StatusCode   int
}

// AuditRecorder persists audit entries. The middleware falls back to
// structured logging alone when no recorder is supplied, which keeps tests
// and deployments without an audit sink working.
type AuditRecorder interface {
	Record(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) Record(entry AuditEntry) error {
	return f(entry)
}

// Audit emits an audit event for every request touching queue state, role
// switching, or hospital configuration. The handler runs first so the entry
// carries the final response status.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			ctx := req.Context()
			if sess := auth.SessionFromContext(ctx); sess != nil {
				entry.UserID = sess.UserID.String()
				entry.ActiveRole = sess.ActiveRoleName
			}

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.Action = httpMethodToAction(req.Method)
			entry.Target = auditTarget(path)
			entry.VisitID = c.Param("visitId")
			entry.DepartmentID = c.Param("departmentId")

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].Record(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("active_role", entry.ActiveRole).
				Str("action", entry.Action).
				Str("target", entry.Target).
				Str("visit_id", entry.VisitID).
				Str("department_id", entry.DepartmentID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("audit_event")

			return err
		}
	}
}

// isAuditablePath returns true for routes whose effects must leave a trail:
// queue mutations and reads, role switching, and hospital configuration.
func isAuditablePath(path string) bool {
	path = strings.TrimPrefix(path, "/api/v1")
	return strings.HasPrefix(path, "/queues") ||
		strings.HasPrefix(path, "/auth/") ||
		strings.HasPrefix(path, "/hospital-config")
}

// auditTarget names the area of the system a path touches.
func auditTarget(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/v1")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		return trimmed[:i]
	}
	if trimmed != "" {
		return trimmed
	}
	return "unknown"
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
