package cache

import (
	"sync"
	"time"
)

// DataCache holds fetched records per user and data type.
type DataCache struct {
	mu    sync.RWMutex
	data  map[string]map[string]Entry[any]
	ttl   time.Duration
	now   func() time.Time
	locks *Locks
}

// NewDataCache creates a cache whose entries stay valid for ttl. A ttl of
// zero or less means DefaultDataTTL.
func NewDataCache(ttl time.Duration, opts ...Option) *DataCache {
	if ttl <= 0 {
		ttl = DefaultDataTTL
	}
	o := buildOptions(opts)
	return &DataCache{
		data:  make(map[string]map[string]Entry[any]),
		ttl:   ttl,
		now:   o.now,
		locks: NewLocks(),
	}
}

func (c *DataCache) TTL() time.Duration {
	return c.ttl
}

func (c *DataCache) Get(userID, dataType string) (Entry[any], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[userID][dataType]
	return e, ok
}

func (c *DataCache) Set(userID, dataType string, value any, passwordHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.data[userID]
	if !ok {
		bucket = make(map[string]Entry[any])
		c.data[userID] = bucket
	}
	bucket[dataType] = Entry[any]{Value: value, PasswordHash: passwordHash, CreatedAt: c.now()}
}

func (c *DataCache) Invalidate(userID, dataType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.data[userID]
	if !ok {
		return
	}
	delete(bucket, dataType)
	if len(bucket) == 0 {
		delete(c.data, userID)
	}
}

// InvalidateUser drops every data type cached for userID.
func (c *DataCache) InvalidateUser(userID string) {
	c.mu.Lock()
	delete(c.data, userID)
	c.mu.Unlock()
}

func (c *DataCache) IsValid(e Entry[any], passwordHash string) bool {
	return valid(e, passwordHash, c.now(), c.ttl)
}

// LockFor returns the per-user lock serializing fetches for userID. It is
// distinct from the session lock so a fetch can log in while holding it.
func (c *DataCache) LockFor(userID string) *sync.Mutex {
	return c.locks.For(userID)
}

func (c *DataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Lookup returns the typed cached value when it is valid for passwordHash.
func Lookup[T any](c *DataCache, userID, dataType, passwordHash string) (T, bool) {
	var zero T
	e, ok := c.Get(userID, dataType)
	if !ok || !c.IsValid(e, passwordHash) {
		return zero, false
	}
	v, ok := e.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
