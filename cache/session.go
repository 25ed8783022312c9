package cache

import (
	"sync"
	"time"

	"github.com/jmcleod/mjuauth/transport"
)

// SessionCache maps a user to the last session that logged in successfully.
// Callers hold LockFor(userID) around check-then-login sequences.
type SessionCache struct {
	mu    sync.RWMutex
	data  map[string]Entry[*transport.Session]
	ttl   time.Duration
	now   func() time.Time
	locks *Locks
}

// NewSessionCache creates a cache whose entries stay valid for ttl. A ttl of
// zero or less means DefaultSessionTTL.
func NewSessionCache(ttl time.Duration, opts ...Option) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	o := buildOptions(opts)
	return &SessionCache{
		data:  make(map[string]Entry[*transport.Session]),
		ttl:   ttl,
		now:   o.now,
		locks: NewLocks(),
	}
}

func (c *SessionCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the stored entry without judging its validity.
func (c *SessionCache) Get(userID string) (Entry[*transport.Session], bool) {
	c.mu.RLock()
	e, ok := c.data[userID]
	c.mu.RUnlock()
	return e, ok
}

// Set stores sess for userID, stamped with the current time.
func (c *SessionCache) Set(userID string, sess *transport.Session, passwordHash string) {
	c.mu.Lock()
	c.data[userID] = Entry[*transport.Session]{Value: sess, PasswordHash: passwordHash, CreatedAt: c.now()}
	c.mu.Unlock()
}

func (c *SessionCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.data, userID)
	c.mu.Unlock()
}

// IsValid reports whether e was produced under passwordHash and is not older
// than the TTL.
func (c *SessionCache) IsValid(e Entry[*transport.Session], passwordHash string) bool {
	return e.Value != nil && valid(e, passwordHash, c.now(), c.ttl)
}

// Lookup returns the cached session when it is valid for passwordHash.
func (c *SessionCache) Lookup(userID, passwordHash string) (*transport.Session, bool) {
	e, ok := c.Get(userID)
	if !ok || !c.IsValid(e, passwordHash) {
		return nil, false
	}
	return e.Value, true
}

// LockFor returns the per-user lock serializing logins for userID.
func (c *SessionCache) LockFor(userID string) *sync.Mutex {
	return c.locks.For(userID)
}

func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
