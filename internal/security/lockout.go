package security

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LoginLockout counts failed sign-ins per account. Once maxFailures
// failures fall inside one period the account is refused for a period.
type LoginLockout struct {
	mu          sync.Mutex
	accounts    map[string]*loginFailures
	maxFailures int
	period      time.Duration
	now         func() time.Time
}

type loginFailures struct {
	count       int
	first       time.Time
	lockedUntil time.Time
}

// LockoutError reports that an account is temporarily refused
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked for %s", e.RetryAfter.Round(time.Second))
}

// Seconds returns RetryAfter rounded up to whole seconds, at least one
func (e *LockoutError) Seconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// NewLoginLockout creates a lockout allowing maxFailures failed attempts per period
func NewLoginLockout(maxFailures int, period time.Duration) *LoginLockout {
	return &LoginLockout{
		accounts:    make(map[string]*loginFailures),
		maxFailures: maxFailures,
		period:      period,
		now:         time.Now,
	}
}

// Check returns the remaining lockout for key, or zero when attempts are allowed
func (l *LoginLockout) Check(key string) time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.accounts[key]
	if !ok {
		return 0
	}
	if now := l.now(); now.Before(f.lockedUntil) {
		return f.lockedUntil.Sub(now)
	}
	return 0
}

// Fail records a failed attempt for key
func (l *LoginLockout) Fail(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	f, ok := l.accounts[key]
	if !ok || l.stale(f, now) {
		f = &loginFailures{first: now}
		l.accounts[key] = f
	}

	f.count++
	if f.count >= l.maxFailures {
		f.lockedUntil = now.Add(l.period)
		f.count = 0
		f.first = now
	}
}

// Succeed clears the failure history of key
func (l *LoginLockout) Succeed(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, key)
}

// Run forgets settled accounts until ctx is cancelled
func (l *LoginLockout) Run(ctx context.Context) {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *LoginLockout) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, f := range l.accounts {
		if l.stale(f, now) {
			delete(l.accounts, key)
		}
	}
}

// stale reports whether f's window has closed and no lockout is running
func (l *LoginLockout) stale(f *loginFailures, now time.Time) bool {
	return now.Sub(f.first) >= l.period && !now.Before(f.lockedUntil)
}
