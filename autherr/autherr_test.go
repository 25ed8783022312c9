package autherr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Network", Network("GET failed", "https://sso.example/", 0, context.DeadlineExceeded), KindNetwork},
		{"Parsing", Parsing("missing public key", "public-key"), KindParsing},
		{"Wrapped", fmt.Errorf("login: %w", InvalidCredentials("", "msi")), KindInvalidCredentials},
		{"Plain", errors.New("boom"), KindUnknown},
		{"Nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("fetch: %w", SessionExpired("session expired", "https://sso.example/login"))

	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.True(t, IsKind(err, KindSessionExpired))
}

func TestInvalidCredentialsDefaultReason(t *testing.T) {
	err := InvalidCredentials("", "msi")
	assert.Equal(t, DefaultAuthFailure, err.Message)
	assert.Equal(t, DefaultAuthFailure, Reason(err))

	err = InvalidCredentials("ID 또는 비밀번호가 일치하지 않습니다.", "msi")
	assert.Equal(t, "ID 또는 비밀번호가 일치하지 않습니다.", Reason(err))
}

func TestErrorStringIncludesContext(t *testing.T) {
	cause := errors.New("connection refused")
	err := Network("POST failed", "https://sso.example/process", 0, cause)

	assert.Contains(t, err.Error(), "https://sso.example/process")
	assert.Contains(t, err.Error(), "connection refused")
	require.ErrorIs(t, err, cause)

	perr := Parsing("login form not found", "signin-form")
	assert.Contains(t, perr.Error(), "field=signin-form")
}
