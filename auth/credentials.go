package auth

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/mjuauth/cache"
	"github.com/jmcleod/mjuauth/sso"
)

var (
	ErrEmptyUserID   = errors.New("auth: user id must not be empty")
	ErrEmptyPassword = errors.New("auth: password must not be empty")
	ErrDestroyed     = errors.New("auth: credentials have been destroyed")
)

// Credentials holds a portal user ID and password. The password is kept in a
// memguard Enclave (encrypted at rest in memory) and only opened for the
// duration of a login. Call Destroy when done.
type Credentials struct {
	mu        sync.Mutex
	userID    string
	password  *memguard.Enclave
	hash      string
	destroyed bool
}

// NewCredentials seals password. The caller's copy is not modified.
func NewCredentials(userID, password string) (*Credentials, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return &Credentials{
		userID:   userID,
		password: memguard.NewEnclave([]byte(password)),
		hash:     cache.HashPassword(password),
	}, nil
}

func (c *Credentials) UserID() string {
	if c == nil {
		return ""
	}
	return c.userID
}

// PasswordHash is the cache validity key derived from the password.
func (c *Credentials) PasswordHash() string {
	if c == nil {
		return ""
	}
	return c.hash
}

// reveal opens the enclave and returns a copy of the password.
func (c *Credentials) reveal() (string, error) {
	if c == nil {
		return "", ErrDestroyed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return "", ErrDestroyed
	}
	buf, err := c.password.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

func (c *Credentials) sso() (sso.Credentials, error) {
	pw, err := c.reveal()
	if err != nil {
		return sso.Credentials{}, err
	}
	return sso.Credentials{UserID: c.userID, Password: pw}, nil
}

// Destroy drops the sealed password. Further logins fail with ErrDestroyed.
func (c *Credentials) Destroy() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = nil
	c.destroyed = true
}
