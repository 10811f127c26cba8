package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, password_hash, display_name, bio, avatar_url,
	role, is_active, email_verified,
	email_verification_token, email_verification_expires_at,
	password_reset_token, password_reset_expires_at,
	social_twitter, social_github, website_url,
	created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool   *pgxpool.Pool
	hasher PasswordHasher
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool *pgxpool.Pool, hasher PasswordHasher) *PGRepository {
	return &PGRepository{pool: pool, hasher: hasher}
}

var _ Repository = (*PGRepository)(nil)

// Create hashes the password and inserts a new row. Uniqueness is enforced
// by the database constraints, not a read-then-write check, so two
// concurrent registrations cannot both pass.
func (r *PGRepository) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	hash, err := r.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, display_name, role, is_active, email_verified)
		VALUES ($1, $2, $3, $4, $5, 'subscriber', true, false)
		RETURNING `+userColumns,
		uuid.New(), req.Username, req.Email, hash, req.DisplayName)

	user, err := scanUser(row)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by ID.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername fetches a user by exact username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail fetches a user by exact email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByUsernameOrEmail resolves a login identifier against both columns.
func (r *PGRepository) FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, usernameOrEmail)
}

// Update applies only the fields present in the request; nil fields keep
// their stored values.
func (r *PGRepository) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			display_name   = COALESCE($2, display_name),
			bio            = COALESCE($3, bio),
			avatar_url     = COALESCE($4, avatar_url),
			social_twitter = COALESCE($5, social_twitter),
			social_github  = COALESCE($6, social_github),
			website_url    = COALESCE($7, website_url),
			updated_at     = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, req.DisplayName, req.Bio, req.AvatarURL, req.SocialTwitter, req.SocialGithub, req.WebsiteURL)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: update: %w", err)
	}
	return user, nil
}

// VerifyPassword checks the plaintext against the user's stored hash.
func (r *PGRepository) VerifyPassword(ctx context.Context, user *User, plaintext string) (bool, error) {
	return r.hasher.Verify(ctx, plaintext, user.PasswordHash)
}

// ChangePassword re-hashes and overwrites the stored hash.
func (r *PGRepository) ChangePassword(ctx context.Context, id uuid.UUID, newPlaintext string) error {
	hash, err := r.hasher.Hash(ctx, newPlaintext)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("users: change password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetEmailVerificationToken stores a fresh verification token/expiry pair,
// invalidating any pending one.
func (r *PGRepository) SetEmailVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			email_verification_token = $1,
			email_verification_expires_at = $2,
			updated_at = now()
		WHERE id = $3`,
		token, expiresAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("users: set verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPasswordResetToken stores a fresh reset token/expiry pair, invalidating
// any pending one.
func (r *PGRepository) SetPasswordResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			password_reset_token = $1,
			password_reset_expires_at = $2,
			updated_at = now()
		WHERE id = $3`,
		token, expiresAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("users: set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// VerifyEmail consumes an unexpired verification token: the match check,
// the verified flag, and the token clear happen in one conditional update.
// Returns (nil, nil) for unknown or expired tokens; the two are not
// distinguishable by the caller.
func (r *PGRepository) VerifyEmail(ctx context.Context, token string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email_verified = true,
			email_verification_token = NULL,
			email_verification_expires_at = NULL,
			updated_at = now()
		WHERE email_verification_token = $1
		  AND email_verification_expires_at > now()
		RETURNING `+userColumns,
		token)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("users: verify email: %w", err)
	}
	return user, nil
}

// ResetPassword consumes an unexpired reset token and applies the new hash
// in the same conditional update.
func (r *PGRepository) ResetPassword(ctx context.Context, token, newPlaintext string) (*User, error) {
	hash, err := r.hasher.Hash(ctx, newPlaintext)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			password_hash = $1,
			password_reset_token = NULL,
			password_reset_expires_at = NULL,
			updated_at = now()
		WHERE password_reset_token = $2
		  AND password_reset_expires_at > now()
		RETURNING `+userColumns,
		hash, token)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("users: reset password: %w", err)
	}
	return user, nil
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("users: find: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Bio, &u.AvatarURL,
		&role, &u.IsActive, &u.EmailVerified,
		&u.EmailVerificationToken, &u.EmailVerificationExpiresAt,
		&u.PasswordResetToken, &u.PasswordResetExpiresAt,
		&u.SocialTwitter, &u.SocialGithub, &u.WebsiteURL,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, ok := ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("users: unknown role %q", role)
	}
	u.Role = parsed
	return &u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return ErrUsernameExists
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrEmailExists
	}
	return nil
}
