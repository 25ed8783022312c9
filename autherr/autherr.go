// Package autherr defines the error taxonomy shared by the authentication
// engine, the caches and the record fetchers. Every error carries a stable
// Kind so callers can map failures to distinct outcomes without string
// matching.
package autherr

import (
	"errors"
	"fmt"
)

// Kind is the stable tag attached to every engine error.
type Kind string

const (
	KindNetwork             Kind = "network_error"
	KindParsing             Kind = "parsing_error"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindSessionExpired      Kind = "session_expired"
	KindSessionNotExist     Kind = "session_not_exist"
	KindAlreadyLoggedIn     Kind = "already_logged_in"
	KindServiceNotFound     Kind = "service_not_found"
	KindInvalidServiceUsage Kind = "invalid_service_usage"
	KindCrypto              Kind = "crypto_error"
	KindUnknown             Kind = "unknown"
)

// DefaultAuthFailure is reported when the portal rejects a login without
// embedding a reason.
const DefaultAuthFailure = "authentication failed"

// Error is the concrete error type returned by the engine.
type Error struct {
	Kind    Kind
	Message string
	// URL is the request URL for network errors.
	URL string
	// Status is the HTTP status code when the failure came from a response.
	Status int
	// Field names the missing page element for parsing errors.
	Field   string
	Service string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.URL != "" && e.Status != 0:
		msg = fmt.Sprintf("%s (url=%s status=%d)", msg, e.URL, e.Status)
	case e.URL != "":
		msg = fmt.Sprintf("%s (url=%s)", msg, e.URL)
	case e.Field != "":
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same Kind, so sentinel comparisons such as
// errors.Is(err, autherr.ErrSessionExpired) work for wrapped errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.URL == "" && t.Field == ""
}

var (
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrParsing             = &Error{Kind: KindParsing}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrSessionExpired      = &Error{Kind: KindSessionExpired}
	ErrSessionNotExist     = &Error{Kind: KindSessionNotExist}
	ErrAlreadyLoggedIn     = &Error{Kind: KindAlreadyLoggedIn}
	ErrServiceNotFound     = &Error{Kind: KindServiceNotFound}
	ErrInvalidServiceUsage = &Error{Kind: KindInvalidServiceUsage}
	ErrCrypto              = &Error{Kind: KindCrypto}
	ErrUnknown             = &Error{Kind: KindUnknown}
)

func Network(message, url string, status int, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, URL: url, Status: status, Err: err}
}

func Parsing(message, field string) *Error {
	return &Error{Kind: KindParsing, Message: message, Field: field}
}

// InvalidCredentials reports a rejected login. An empty reason falls back to
// DefaultAuthFailure.
func InvalidCredentials(reason, service string) *Error {
	if reason == "" {
		reason = DefaultAuthFailure
	}
	return &Error{Kind: KindInvalidCredentials, Message: reason, Service: service}
}

func SessionExpired(message, redirectURL string) *Error {
	return &Error{Kind: KindSessionExpired, Message: message, URL: redirectURL}
}

func SessionNotExist(message string) *Error {
	return &Error{Kind: KindSessionNotExist, Message: message}
}

func AlreadyLoggedIn(service string) *Error {
	return &Error{Kind: KindAlreadyLoggedIn, Message: fmt.Sprintf("already logged in to %q", service), Service: service}
}

func ServiceNotFound(service string, available []string) *Error {
	return &Error{
		Kind:    KindServiceNotFound,
		Message: fmt.Sprintf("unknown service %q (available: %v)", service, available),
		Service: service,
	}
}

func InvalidServiceUsage(required, current string) *Error {
	return &Error{
		Kind:    KindInvalidServiceUsage,
		Message: fmt.Sprintf("operation requires service %q but session is authenticated for %q", required, current),
		Service: current,
	}
}

func Crypto(message string, err error) *Error {
	return &Error{Kind: KindCrypto, Message: message, Err: err}
}

func Unknown(message string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var typed *Error
	if !errors.As(err, &typed) {
		return KindUnknown
	}
	return typed.Kind
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Kind == kind
}

// Reason returns the human-readable message without transport decorations.
func Reason(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
