package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jmcleod/mjuauth/internal/util"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	accessInfoKey
)

const requestIDHeader = "X-Request-ID"

// accessInfo is filled in by handlers so the access log can name the
// student the request was about.
type accessInfo struct {
	studentID string
}

func newRequestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RequestID tags every request with a short random ID, echoed in the
// X-Request-ID response header.
func (a *API) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := newRequestID()
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	if id == "" {
		return "-"
	}
	return id
}

func setStudentID(r *http.Request, userID string) {
	if info, ok := r.Context().Value(accessInfoKey).(*accessInfo); ok {
		info.studentID = userID
	}
}

// AccessLog writes one structured entry per request. Rejected and throttled
// requests log at warn, server-side failures at error.
func (a *API) AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &accessInfo{}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(context.WithValue(r.Context(), accessInfoKey, info))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status == http.StatusUnauthorized || status == http.StatusTooManyRequests:
			level = slog.LevelWarn
		}
		student := "-"
		if info.studentID != "" {
			student = util.Mask(info.studentID)
		}
		a.audit.access.LogAttrs(r.Context(), level, http.StatusText(status),
			slog.String("ip", clientIP(r)),
			slog.String("student_id", student),
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Float64("elapsed", time.Since(start).Seconds()),
		)
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
