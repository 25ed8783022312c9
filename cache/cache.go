// Package cache keeps authenticated sessions and fetched records in memory,
// keyed by user and guarded by per-user locks. Nothing here survives a
// restart.
package cache

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

const (
	DefaultSessionTTL = 30 * time.Minute
	DefaultDataTTL    = 20 * time.Minute
)

// Entry is a cached value with the password hash it was produced under.
type Entry[T any] struct {
	Value        T
	PasswordHash string
	CreatedAt    time.Time
}

// HashPassword returns the hex SHA-256 of password. It only decides whether
// a cached entry belongs to the same credentials and is never stored
// anywhere else.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func valid[T any](e Entry[T], hash string, now time.Time, ttl time.Duration) bool {
	if subtle.ConstantTimeCompare([]byte(e.PasswordHash), []byte(hash)) != 1 {
		return false
	}
	return now.Sub(e.CreatedAt) <= ttl
}

// Option configures a cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Locks hands out one mutex per user, created on first use. The inner map
// is guarded by a mutex held only for the lookup.
type Locks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{m: make(map[string]*sync.Mutex)}
}

// For returns userID's mutex. The same pointer is returned for the lifetime
// of the Locks.
func (l *Locks) For(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.m[userID]
	if !ok {
		m = &sync.Mutex{}
		l.m[userID] = m
	}
	return m
}

func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
