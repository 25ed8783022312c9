package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jmcleod/mjuauth/auth"
	"github.com/jmcleod/mjuauth/result"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/student"
)

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Name:        apiName,
		Message:     apiName + " is running.",
		Description: "API documentation is available at /api/v1/docs.",
		Version:     a.version,
	})
}

func (a *API) Services(w http.ResponseWriter, r *http.Request) {
	keys := a.registry.Keys()
	resp := ServicesResponse{Services: make([]ServiceInfo, 0, len(keys))}
	for _, k := range keys {
		d, err := a.registry.Lookup(k)
		if err != nil {
			continue
		}
		resp.Services = append(resp.Services, ServiceInfo{Key: d.Key, Name: d.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) StudentCard(w http.ResponseWriter, r *http.Request) {
	serveRecord(a, w, r, func(ctx context.Context, creds *auth.Credentials) result.Result[*student.Card] {
		return a.orch.GetStudentCard(ctx, creds)
	})
}

func (a *API) StudentChangelog(w http.ResponseWriter, r *http.Request) {
	serveRecord(a, w, r, func(ctx context.Context, creds *auth.Credentials) result.Result[*student.ChangeLog] {
		return a.orch.GetStudentChangelog(ctx, creds)
	})
}

func (a *API) StudentBasicInfo(w http.ResponseWriter, r *http.Request) {
	serveRecord(a, w, r, func(ctx context.Context, creds *auth.Credentials) result.Result[*student.BasicInfo] {
		return a.orch.GetStudentBasicInfo(ctx, creds)
	})
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Service == "" {
		req.Service = service.MSI
	}
	desc, err := a.registry.Lookup(req.Service)
	if err != nil {
		res := result.FromError[*LoginData](err)
		writeJSON(w, statusFor(res), res)
		return
	}

	creds, ok := a.admit(w, r, req.UserID, req.UserPW)
	if !ok {
		return
	}
	defer creds.Destroy()

	var res result.Result[*LoginData]
	err = a.pool.do(r.Context(), func() {
		out := a.orch.Login(context.WithoutCancel(r.Context()), creds, desc.Key)
		res = result.Result[*LoginData]{Outcome: out.Outcome, Kind: out.Kind, Message: out.Message}
		if out.Success() {
			res.Data = &LoginData{Service: desc.Key, Name: desc.Name}
		}
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a worker")
		return
	}
	a.observe(r, req.UserID, res.Outcome, res.Message, AuditLoginSuccess)
	writeJSON(w, statusFor(res), res)
}

// Session reports on the caller's cached portal session without logging in.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Service == "" {
		req.Service = service.MSI
	}
	desc, err := a.registry.Lookup(req.Service)
	if err != nil {
		res := result.FromError[*auth.SessionStatus](err)
		writeJSON(w, statusFor(res), res)
		return
	}

	creds, ok := a.admit(w, r, req.UserID, req.UserPW)
	if !ok {
		return
	}
	defer creds.Destroy()

	var res result.Result[*auth.SessionStatus]
	if err := a.pool.do(r.Context(), func() { res = a.orch.CheckSession(r.Context(), creds, desc.Key) }); err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a worker")
		return
	}
	a.observe(r, req.UserID, res.Outcome, res.Message, AuditSessionCheck)
	writeJSON(w, statusFor(res), res)
}

// serveRecord runs a record fetch for the credentials in the request body.
// Portal work is detached from client cancellation once a worker is held so
// a dropped connection cannot leave a half-written session or data entry.
func serveRecord[T any](a *API, w http.ResponseWriter, r *http.Request, fetch func(context.Context, *auth.Credentials) result.Result[T]) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creds, ok := a.admit(w, r, req.UserID, req.UserPW)
	if !ok {
		return
	}
	defer creds.Destroy()

	var res result.Result[T]
	if err := a.pool.do(r.Context(), func() { res = fetch(context.WithoutCancel(r.Context()), creds) }); err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a worker")
		return
	}
	a.observe(r, req.UserID, res.Outcome, res.Message, AuditFetchSuccess)
	writeJSON(w, statusFor(res), res)
}

// admit validates the credentials and applies the failed-login backoff.
func (a *API) admit(w http.ResponseWriter, r *http.Request, userID, password string) (*auth.Credentials, bool) {
	if userID == "" || password == "" {
		writeError(w, http.StatusBadRequest, "user_id and user_pw are required")
		return nil, false
	}
	setStudentID(r, userID)

	if blocked, retryAfter := a.rateLimiter.check(userID); blocked {
		a.audit.log(AuditLoginRateLimited, r, userID)
		writeRateLimited(w, retryAfter)
		return nil, false
	}

	creds, err := auth.NewCredentials(userID, password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return creds, true
}

// observe feeds an outcome into the rate limiter and the audit log.
func (a *API) observe(r *http.Request, userID string, outcome result.Outcome, message string, success AuditEvent) {
	switch outcome {
	case result.Rejected:
		a.rateLimiter.recordFailure(userID)
		a.audit.logFailure(AuditLoginFailure, r, userID, message)
	case result.Failed:
		a.audit.logFailure(AuditUpstreamFailure, r, userID, message)
	case result.Succeeded:
		// Credentials were not checked, so the backoff is left alone.
		a.audit.log(success, r, userID)
	default:
		a.rateLimiter.recordSuccess(userID)
		a.audit.log(success, r, userID)
	}
}
