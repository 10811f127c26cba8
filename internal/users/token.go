package users

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Token lifetimes follow the account lifecycle rules: verification links
// stay valid for a day, reset links for an hour.
const (
	VerificationTokenTTL = 24 * time.Hour
	PasswordResetTTL     = time.Hour
)

const tokenBytes = 32

// TokenIssuer mints single-use opaque tokens with an absolute expiry.
// Verification and reset tokens are stored in disjoint columns, so tokens
// from one purpose can never satisfy a check for the other.
type TokenIssuer struct {
	ttl time.Duration
	now func() time.Time
}

// NewVerificationTokenIssuer issues email verification tokens.
func NewVerificationTokenIssuer() *TokenIssuer {
	return &TokenIssuer{ttl: VerificationTokenTTL, now: time.Now}
}

// NewPasswordResetTokenIssuer issues password reset tokens.
func NewPasswordResetTokenIssuer() *TokenIssuer {
	return &TokenIssuer{ttl: PasswordResetTTL, now: time.Now}
}

// Issue returns a high-entropy opaque token and its expiry instant.
func (t *TokenIssuer) Issue() (string, time.Time, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	return base64.RawURLEncoding.EncodeToString(b), t.now().UTC().Add(t.ttl), nil
}
