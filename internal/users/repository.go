package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PasswordHasher abstracts one-way password hashing so the repository never
// sees hashing internals and tests can substitute a cheap implementation.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, encoded string) (bool, error)
}

// Repository is the persistence contract for user rows. Lookups return
// (nil, nil) on a legitimate miss; only infrastructure faults surface as
// errors. Token consumption is a single conditional update so a token can
// never be observed as both valid and still usable by a concurrent caller.
type Repository interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*User, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error)
	VerifyPassword(ctx context.Context, user *User, plaintext string) (bool, error)
	ChangePassword(ctx context.Context, id uuid.UUID, newPlaintext string) error
	SetEmailVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	SetPasswordResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	VerifyEmail(ctx context.Context, token string) (*User, error)
	ResetPassword(ctx context.Context, token, newPlaintext string) (*User, error)
}
