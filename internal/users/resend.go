package users

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResendCooldown is the minimum gap between two permitted verification
// resends for the same email.
const ResendCooldown = 60 * time.Second

var lowercaser = cases.Lower(language.Und)

// NormalizeEmail produces the canonical form used as the limiter key.
func NormalizeEmail(email string) string {
	return lowercaser.String(strings.TrimSpace(email))
}

// ResendLimiter is a per-key cooldown gate. State is a plain map guarded by
// a mutex so the cooldown check and the recording of "now" form one critical
// section: under concurrent calls for the same key, at most one caller in
// any cooldown window observes true.
//
// Scope is a single process. Keys are never evicted; the map grows with the
// number of distinct emails seen over the process lifetime.
type ResendLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewResendLimiter constructs a limiter with the given cooldown.
func NewResendLimiter(cooldown time.Duration) *ResendLimiter {
	return &ResendLimiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow reports whether the key may proceed, recording the attempt when it
// does. A denied call leaves the recorded instant untouched.
func (l *ResendLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[key]; ok && now.Sub(prev) < l.cooldown {
		return false
	}
	l.last[key] = now
	return true
}
