// Package result models the outcome of a request against the portal as an
// explicit tagged union instead of a pair of booleans.
package result

import (
	"encoding/json"

	"github.com/jmcleod/mjuauth/autherr"
)

// Outcome enumerates the meaningful combinations of "did the request
// complete" and "were the credentials valid".
type Outcome int

const (
	// Failed means the request did not complete (transport, parsing, crypto,
	// protocol failure). Credential validity is unknown.
	Failed Outcome = iota
	// Succeeded means the request completed and credentials were not part of
	// the question.
	Succeeded
	// Authenticated means the request completed and the credentials were
	// accepted.
	Authenticated
	// Rejected means the request completed and the portal refused the
	// credentials.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Result carries the outcome of an operation together with its data or the
// error tag and message.
type Result[T any] struct {
	Outcome Outcome
	Data    T
	Kind    autherr.Kind
	Message string
}

// RequestSucceeded reports whether the logic completed without a transport or
// parsing failure.
func (r Result[T]) RequestSucceeded() bool {
	return r.Outcome != Failed
}

// CredentialsValid is nil when the outcome says nothing about the
// credentials.
func (r Result[T]) CredentialsValid() *bool {
	var v bool
	switch r.Outcome {
	case Authenticated:
		v = true
	case Rejected:
		v = false
	default:
		return nil
	}
	return &v
}

// Success is RequestSucceeded AND (CredentialsValid is nil OR true).
func (r Result[T]) Success() bool {
	if !r.RequestSucceeded() {
		return false
	}
	valid := r.CredentialsValid()
	return valid == nil || *valid
}

func OK[T any](data T) Result[T] {
	return Result[T]{Outcome: Succeeded, Data: data}
}

func Authenticate[T any](data T) Result[T] {
	return Result[T]{Outcome: Authenticated, Data: data}
}

// FromError classifies err. Invalid credentials become Rejected; everything
// else becomes Failed with the error's kind.
func FromError[T any](err error) Result[T] {
	var zero T
	if err == nil {
		return Result[T]{Outcome: Succeeded, Data: zero}
	}
	kind := autherr.KindOf(err)
	outcome := Failed
	if kind == autherr.KindInvalidCredentials {
		outcome = Rejected
	}
	return Result[T]{
		Outcome: outcome,
		Kind:    kind,
		Message: autherr.Reason(err),
	}
}

type resultJSON struct {
	RequestSucceeded bool   `json:"request_succeeded"`
	CredentialsValid *bool  `json:"credentials_valid"`
	Data             any    `json:"data"`
	ErrorCode        string `json:"error_code"`
	ErrorMessage     string `json:"error_message"`
	Success          bool   `json:"success"`
}

// MarshalJSON renders the wire shape consumed by API clients.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		RequestSucceeded: r.RequestSucceeded(),
		CredentialsValid: r.CredentialsValid(),
		ErrorCode:        string(r.Kind),
		ErrorMessage:     r.Message,
		Success:          r.Success(),
	}
	if r.Success() {
		out.Data = r.Data
	}
	return json.Marshal(out)
}
