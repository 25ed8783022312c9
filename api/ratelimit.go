package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// loginRateLimiter tracks rejected logins per portal account and enforces
// exponential backoff, so a client retrying a wrong password cannot get the
// account locked by the SSO gateway. The key is the SHA-256 of the user ID,
// not the ID itself.
type loginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attemptRecord
	maxFailures int
	window      time.Duration
	maxLockout  time.Duration
	now         func() time.Time
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

const (
	// maxFailures is the number of consecutive rejections before lockout begins.
	maxFailures = 5
	// baseLockout is the initial lockout duration after maxFailures is reached.
	baseLockout = 1 * time.Minute
	// maxLockout caps the exponential backoff.
	maxLockout = 15 * time.Minute
	// failureWindow is how long after the last rejection before the record is
	// forgotten.
	failureWindow = 10 * time.Minute
)

func newLoginRateLimiter(failures int, window, lockoutCap time.Duration) *loginRateLimiter {
	if failures < 1 {
		failures = maxFailures
	}
	if window <= 0 {
		window = failureWindow
	}
	if lockoutCap <= 0 {
		lockoutCap = maxLockout
	}
	return &loginRateLimiter{
		attempts:    make(map[string]*attemptRecord),
		maxFailures: failures,
		window:      window,
		maxLockout:  lockoutCap,
		now:         time.Now,
	}
}

func accountKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// check returns true if the account is currently locked out, along with how
// long the caller should wait. A zero duration means the request may proceed.
func (rl *loginRateLimiter) check(userID string) (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := accountKey(userID)
	rec, ok := rl.attempts[key]
	if !ok {
		return false, 0
	}
	now := rl.now()
	if now.Before(rec.lockedUntil) {
		return true, rec.lockedUntil.Sub(now)
	}
	if now.Sub(rec.lastFailure) > rl.window {
		delete(rl.attempts, key)
	}
	return false, 0
}

// recordFailure increments the failure counter and applies exponential
// backoff once maxFailures is reached.
func (rl *loginRateLimiter) recordFailure(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := accountKey(userID)
	now := rl.now()
	rec, ok := rl.attempts[key]
	if !ok || now.Sub(rec.lastFailure) > rl.window {
		rec = &attemptRecord{}
		rl.attempts[key] = rec
	}
	rec.failures++
	rec.lastFailure = now

	if rec.failures >= rl.maxFailures {
		// baseLockout * 2^(failures - maxFailures), capped.
		shift := rec.failures - rl.maxFailures
		lockout := min(baseLockout, rl.maxLockout)
		for i := 0; i < shift; i++ {
			lockout *= 2
			if lockout > rl.maxLockout {
				lockout = rl.maxLockout
				break
			}
		}
		rec.lockedUntil = now.Add(lockout)
	}
}

// recordSuccess resets the failure counter on an accepted login.
func (rl *loginRateLimiter) recordSuccess(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, accountKey(userID))
}

// sweep removes expired records. Call periodically from a background goroutine.
func (rl *loginRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, rec := range rl.attempts {
		if now.Sub(rec.lastFailure) > rl.window && !now.Before(rec.lockedUntil) {
			delete(rl.attempts, id)
		}
	}
}

func (rl *loginRateLimiter) len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}

// writeRateLimited sends a 429 Too Many Requests response.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	writeError(w, http.StatusTooManyRequests, "too many failed login attempts; try again later")
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP returns the request's peer address without the port. chi's RealIP
// middleware has already applied any proxy headers.
func clientIP(r *http.Request) string {
	if ip, ok := parseIPCandidate(r.RemoteAddr); ok {
		return ip
	}
	return "-"
}

func parseIPCandidate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"")
	if s == "" {
		return "", false
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	// Drop zone if any (e.g. fe80::1%eth0).
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String(), true
	}
	return "", false
}
