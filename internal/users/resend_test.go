package users

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResendLimiterCooldown(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewResendLimiter(60 * time.Second)
	limiter.now = func() time.Time { return current }

	require.True(t, limiter.Allow("alice@example.com"))
	require.False(t, limiter.Allow("alice@example.com"))

	// Other keys are independent.
	require.True(t, limiter.Allow("bob@example.com"))

	// One second before the cooldown elapses: still denied, and the denial
	// must not extend the window.
	current = current.Add(59 * time.Second)
	require.False(t, limiter.Allow("alice@example.com"))

	current = current.Add(time.Second)
	require.True(t, limiter.Allow("alice@example.com"))
}

func TestResendLimiterDenialDoesNotExtendWindow(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewResendLimiter(60 * time.Second)
	limiter.now = func() time.Time { return current }

	require.True(t, limiter.Allow("k"))
	for i := 0; i < 10; i++ {
		current = current.Add(5 * time.Second)
		require.False(t, limiter.Allow("k"))
	}
	// 60s after the one permitted call, despite the denied attempts in between.
	current = current.Add(10 * time.Second)
	require.True(t, limiter.Allow("k"))
}

func TestResendLimiterConcurrency(t *testing.T) {
	limiter := NewResendLimiter(time.Minute)

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- limiter.Allow("contended@example.com")
		}()
	}
	wg.Wait()
	close(results)

	allowed := 0
	for ok := range results {
		if ok {
			allowed++
		}
	}
	require.Equal(t, 1, allowed, "exactly one concurrent caller may pass")
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewVerificationTokenIssuer()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, expiresAt, err := issuer.Issue()
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.True(t, expiresAt.After(time.Now().Add(23*time.Hour)))
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = struct{}{}
	}

	reset := NewPasswordResetTokenIssuer()
	_, expiresAt, err := reset.Issue()
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))
	require.True(t, expiresAt.Before(time.Now().Add(61*time.Minute)))
}

func BenchmarkResendLimiter(b *testing.B) {
	limiter := NewResendLimiter(time.Minute)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		limiter.Allow(fmt.Sprintf("user%d@example.com", i%1000))
	}
}
