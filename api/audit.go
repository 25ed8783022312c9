package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcleod/mjuauth/internal/util"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess     AuditEvent = "login_success"
	AuditLoginFailure     AuditEvent = "login_failure"
	AuditLoginRateLimited AuditEvent = "login_rate_limited"
	AuditFetchSuccess     AuditEvent = "fetch_success"
	AuditUpstreamFailure  AuditEvent = "upstream_failure"
	AuditSessionCheck     AuditEvent = "session_check"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	access  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
		access: logger.With("component", "access"),
	}
}

// log writes a structured audit log entry. Student IDs are masked.
func (al *auditLogger) log(event AuditEvent, r *http.Request, userID string, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("ip", clientIP(r)),
		slog.String("student_id", util.Mask(userID)),
		slog.String("request_id", requestIDFrom(r.Context())),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logFailure logs a rejected or failed request with its reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, userID, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, userID, attrs...)
}
