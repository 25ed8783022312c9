// Package auth ties the login state machine, the session and data caches
// and the record fetchers together. It is the entry point the API and CLI
// call, and it converts every error into a result.Result.
package auth

//go:generate mockgen -destination=../internal/mocks/mock_auth.go -package=mocks github.com/jmcleod/mjuauth/auth Authenticator

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/cache"
	"github.com/jmcleod/mjuauth/internal/util"
	"github.com/jmcleod/mjuauth/result"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/sso"
	"github.com/jmcleod/mjuauth/student"
	"github.com/jmcleod/mjuauth/transport"
)

// Data types stored in the DataCache.
const (
	DataStudentCard      = "student_card"
	DataStudentChangeLog = "student_changelog"
	DataStudentBasicInfo = "student_basicinfo"
)

// Authenticator performs SSO logins. *sso.Authenticator implements it.
type Authenticator interface {
	Login(ctx context.Context, creds sso.Credentials, serviceKey string) (*transport.Session, error)
	IsSessionValid(ctx context.Context, sess *transport.Session, serviceKey string) bool
}

var _ Authenticator = (*sso.Authenticator)(nil)

// Orchestrator serves cached sessions and records, logging in only when the
// cache cannot answer. Logins for one user are strictly serialized; users
// never wait on each other.
type Orchestrator struct {
	auth     Authenticator
	sessions *cache.SessionCache
	data     *cache.DataCache
	fetcher  *student.Fetcher
	service  string
	log      logr.Logger
}

type Option func(*Orchestrator)

func WithLogger(logger logr.Logger) Option {
	return func(o *Orchestrator) {
		o.log = logger
	}
}

// WithService sets the service cached sessions are logged in to. Defaults
// to msi.
func WithService(key string) Option {
	return func(o *Orchestrator) {
		o.service = key
	}
}

func WithFetcher(f *student.Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

func New(auth Authenticator, sessions *cache.SessionCache, data *cache.DataCache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		auth:     auth,
		sessions: sessions,
		data:     data,
		service:  service.MSI,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log.GetSink() == nil {
		o.log = logr.Discard()
	}
	if o.fetcher == nil {
		o.fetcher = student.NewFetcher(service.DefaultMSIEndpoints(), student.WithLogger(o.log))
	}
	return o
}

// GetValidSession returns the cached session for creds or logs in afresh.
// A rejected login also drops every cached record of the user.
func (o *Orchestrator) GetValidSession(ctx context.Context, creds *Credentials) (*transport.Session, error) {
	lock := o.sessions.LockFor(creds.UserID())
	lock.Lock()
	defer lock.Unlock()

	userID, hash := creds.UserID(), creds.PasswordHash()
	log := o.log.WithValues("user", util.Mask(userID), "service", o.service)

	if sess, ok := o.sessions.Lookup(userID, hash); ok {
		log.V(1).Info("session cache hit")
		return sess, nil
	}
	o.sessions.Invalidate(userID)

	sc, err := creds.sso()
	if err != nil {
		return nil, err
	}
	sess, err := o.auth.Login(ctx, sc, o.service)
	if err != nil {
		if autherr.IsKind(err, autherr.KindInvalidCredentials) {
			// Not under the data lock: Fetch takes the data lock before the
			// session lock, so taking it here would invert the order. The
			// DataCache map is guarded by its own RWMutex.
			o.data.InvalidateUser(userID)
		}
		log.Info("login failed", "kind", string(autherr.KindOf(err)))
		return nil, err
	}

	o.sessions.Set(userID, sess, hash)
	log.V(1).Info("session stored")
	return sess, nil
}

func (o *Orchestrator) invalidateSession(userID string) {
	lock := o.sessions.LockFor(userID)
	lock.Lock()
	o.sessions.Invalidate(userID)
	lock.Unlock()
}

// FetchWithRetry runs op with a valid session. A failure other than
// InvalidCredentials invalidates the session and runs op once more with a
// fresh login; the second error is returned as is.
func FetchWithRetry[T any](ctx context.Context, o *Orchestrator, creds *Credentials, op func(context.Context, *transport.Session) (T, error)) (T, error) {
	var zero T

	sess, err := o.GetValidSession(ctx, creds)
	if err != nil {
		return zero, err
	}
	v, err := op(ctx, sess)
	if err == nil {
		return v, nil
	}
	if autherr.IsKind(err, autherr.KindInvalidCredentials) {
		return zero, err
	}

	o.log.V(1).Info("fetch failed, retrying with a new session",
		"user", util.Mask(creds.UserID()), "kind", string(autherr.KindOf(err)))
	o.invalidateSession(creds.UserID())

	sess, err = o.GetValidSession(ctx, creds)
	if err != nil {
		return zero, err
	}
	return op(ctx, sess)
}

// Fetch answers from the DataCache when possible and otherwise runs op
// through FetchWithRetry, caching the value on success. The user's data lock
// is held throughout so concurrent requests for the same user share a
// single fetch.
func Fetch[T any](ctx context.Context, o *Orchestrator, creds *Credentials, dataType string, op func(context.Context, *transport.Session) (T, error)) result.Result[T] {
	userID, hash := creds.UserID(), creds.PasswordHash()
	lock := o.data.LockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if v, ok := cache.Lookup[T](o.data, userID, dataType, hash); ok {
		o.log.V(1).Info("data cache hit", "user", util.Mask(userID), "type", dataType)
		return result.Authenticate(v)
	}

	v, err := FetchWithRetry(ctx, o, creds, op)
	if err != nil {
		return result.FromError[T](err)
	}
	o.data.Set(userID, dataType, v, hash)
	return result.Authenticate(v)
}

// Login performs an explicit login without consulting the cache. A login to
// the orchestrator's own service refreshes the cached session.
func (o *Orchestrator) Login(ctx context.Context, creds *Credentials, serviceKey string) result.Result[*transport.Session] {
	userID := creds.UserID()
	lock := o.sessions.LockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	sc, err := creds.sso()
	if err != nil {
		return result.FromError[*transport.Session](err)
	}
	sess, err := o.auth.Login(ctx, sc, serviceKey)
	if err != nil {
		if serviceKey == o.service && autherr.IsKind(err, autherr.KindInvalidCredentials) {
			o.sessions.Invalidate(userID)
			// Same lock order constraint as in GetValidSession.
			o.data.InvalidateUser(userID)
		}
		return result.FromError[*transport.Session](err)
	}
	if serviceKey == o.service {
		o.sessions.Set(userID, sess, creds.PasswordHash())
	}
	return result.Authenticate(sess)
}

// IsSessionValid probes the user's cached session against serviceKey. No
// cached session means false. The probe runs under the user's session lock.
func (o *Orchestrator) IsSessionValid(ctx context.Context, userID, serviceKey string) bool {
	lock := o.sessions.LockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	e, ok := o.sessions.Get(userID)
	if !ok || e.Value == nil {
		return false
	}
	return o.auth.IsSessionValid(ctx, e.Value, serviceKey)
}

// SessionStatus describes the cached session of one user.
type SessionStatus struct {
	Service string `json:"service"`
	Cached  bool   `json:"cached"`
	Valid   bool   `json:"valid"`
}

// CheckSession reports whether creds have a live cached session and whether
// serviceKey still accepts it. It never logs in, so the outcome is Succeeded:
// nothing is learned about the credentials themselves.
func (o *Orchestrator) CheckSession(ctx context.Context, creds *Credentials, serviceKey string) result.Result[*SessionStatus] {
	userID := creds.UserID()
	lock := o.sessions.LockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	st := &SessionStatus{Service: serviceKey}
	if sess, ok := o.sessions.Lookup(userID, creds.PasswordHash()); ok {
		st.Cached = true
		st.Valid = o.auth.IsSessionValid(ctx, sess, serviceKey)
	}
	return result.OK(st)
}

func (o *Orchestrator) GetStudentCard(ctx context.Context, creds *Credentials) result.Result[*student.Card] {
	pw, err := creds.reveal()
	if err != nil {
		return result.FromError[*student.Card](err)
	}
	return Fetch(ctx, o, creds, DataStudentCard, o.fetcher.FetchCard(pw))
}

func (o *Orchestrator) GetStudentChangelog(ctx context.Context, creds *Credentials) result.Result[*student.ChangeLog] {
	return Fetch(ctx, o, creds, DataStudentChangeLog, o.fetcher.FetchChangeLog())
}

func (o *Orchestrator) GetStudentBasicInfo(ctx context.Context, creds *Credentials) result.Result[*student.BasicInfo] {
	return Fetch(ctx, o, creds, DataStudentBasicInfo, o.fetcher.FetchBasicInfo())
}
