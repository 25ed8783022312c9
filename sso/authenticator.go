// Package sso drives the gateway's browser login: scrape the login page,
// encrypt the credentials the way the page's script would, submit, then
// walk the script-driven redirect chain until the target portal is reached.
package sso

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/jmcleod/mjuauth/crypto"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/transport"
)

const (
	DefaultMaxRedirects = 3
	maxRedirectsCeiling = 10
)

// Credentials are the plaintext login inputs. Callers should keep the
// password in protected memory and build this value only for the duration
// of a login.
type Credentials struct {
	UserID   string
	Password string
}

// SessionFactory creates the handle a fresh login runs on.
type SessionFactory func() (*transport.Session, error)

// Authenticator performs SSO logins against the services in its registry.
// It holds no per-login state and is safe for concurrent use.
type Authenticator struct {
	registry     *service.Registry
	log          logr.Logger
	maxRedirects int
	now          func() time.Time
	keyLength    int
	newSession   SessionFactory
}

// Option configures an Authenticator.
type Option func(*Authenticator)

func WithLogger(logger logr.Logger) Option {
	return func(a *Authenticator) {
		a.log = logger
	}
}

// WithMaxRedirects bounds the script-driven redirect loop. Values are
// clamped to [1, 10].
func WithMaxRedirects(n int) Option {
	return func(a *Authenticator) {
		a.maxRedirects = clamp(n, 1, maxRedirectsCeiling)
	}
}

// WithClock sets the time source for the timestamp embedded in the RSA
// payload.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithKeyLength sets the derived AES key length in bytes. The gateway
// expects AES-256; 16 and 24 are accepted for gateways configured otherwise.
func WithKeyLength(n int) Option {
	return func(a *Authenticator) {
		a.keyLength = n
	}
}

func WithSessionFactory(f SessionFactory) Option {
	return func(a *Authenticator) {
		if f != nil {
			a.newSession = f
		}
	}
}

// New creates an Authenticator for the services in registry.
func New(registry *service.Registry, opts ...Option) *Authenticator {
	a := &Authenticator{
		registry:     registry,
		maxRedirects: DefaultMaxRedirects,
		now:          time.Now,
		keyLength:    crypto.DefaultKeyLength,
		newSession:   func() (*transport.Session, error) { return transport.NewSession() },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = resolveLogger(a.log)
	return a
}

// Registry returns the service table the authenticator resolves keys in.
func (a *Authenticator) Registry() *service.Registry {
	return a.registry
}

func (a *Authenticator) MaxRedirects() int {
	return a.maxRedirects
}

func resolveLogger(logger logr.Logger) logr.Logger {
	if logger.GetSink() == nil {
		return logr.Discard()
	}
	return logger
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}
