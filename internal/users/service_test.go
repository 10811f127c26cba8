package users

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeHasher struct{}

func (fakeHasher) Hash(_ context.Context, plaintext string) (string, error) {
	return "fakehash$" + plaintext, nil
}

func (fakeHasher) Verify(_ context.Context, plaintext, encoded string) (bool, error) {
	return encoded == "fakehash$"+plaintext, nil
}

type recordingMailer struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
}

func (m *recordingMailer) SendVerification(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, token)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, token)
	return nil
}

func (m *recordingMailer) verificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verifications)
}

// memoryRepo is an in-memory Repository double preserving the contract's
// atomicity guarantees under the mutex.
type memoryRepo struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]*User
	hasher PasswordHasher
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[uuid.UUID]*User), hasher: fakeHasher{}}
}

func (r *memoryRepo) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Username == req.Username {
			return nil, ErrUsernameExists
		}
		if row.Email == req.Email {
			return nil, ErrEmailExists
		}
	}
	hash, err := r.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		Role:         RoleSubscriber,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.rows[user.ID] = user
	clone := *user
	return &clone, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, nil
}

func (r *memoryRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	return r.findWhere(func(u *User) bool { return u.Username == username })
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	return r.findWhere(func(u *User) bool { return u.Email == email })
}

func (r *memoryRepo) FindByUsernameOrEmail(_ context.Context, id string) (*User, error) {
	return r.findWhere(func(u *User) bool { return u.Username == id || u.Email == id })
}

func (r *memoryRepo) findWhere(match func(*User) bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if match(row) {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if req.DisplayName != nil {
		row.DisplayName = req.DisplayName
	}
	if req.Bio != nil {
		row.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		row.AvatarURL = req.AvatarURL
	}
	if req.SocialTwitter != nil {
		row.SocialTwitter = req.SocialTwitter
	}
	if req.SocialGithub != nil {
		row.SocialGithub = req.SocialGithub
	}
	if req.WebsiteURL != nil {
		row.WebsiteURL = req.WebsiteURL
	}
	row.UpdatedAt = time.Now().UTC()
	clone := *row
	return &clone, nil
}

func (r *memoryRepo) VerifyPassword(ctx context.Context, user *User, plaintext string) (bool, error) {
	return r.hasher.Verify(ctx, plaintext, user.PasswordHash)
}

func (r *memoryRepo) ChangePassword(ctx context.Context, id uuid.UUID, newPlaintext string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ErrUserNotFound
	}
	hash, err := r.hasher.Hash(ctx, newPlaintext)
	if err != nil {
		return err
	}
	row.PasswordHash = hash
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) SetEmailVerificationToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ErrUserNotFound
	}
	row.EmailVerificationToken = &token
	row.EmailVerificationExpiresAt = &expiresAt
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) SetPasswordResetToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ErrUserNotFound
	}
	row.PasswordResetToken = &token
	row.PasswordResetExpiresAt = &expiresAt
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) VerifyEmail(_ context.Context, token string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.EmailVerificationToken != nil && *row.EmailVerificationToken == token &&
			row.EmailVerificationExpiresAt != nil && time.Now().Before(*row.EmailVerificationExpiresAt) {
			row.EmailVerified = true
			row.EmailVerificationToken = nil
			row.EmailVerificationExpiresAt = nil
			row.UpdatedAt = time.Now().UTC()
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ResetPassword(ctx context.Context, token, newPlaintext string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PasswordResetToken != nil && *row.PasswordResetToken == token &&
			row.PasswordResetExpiresAt != nil && time.Now().Before(*row.PasswordResetExpiresAt) {
			hash, err := r.hasher.Hash(ctx, newPlaintext)
			if err != nil {
				return nil, err
			}
			row.PasswordHash = hash
			row.PasswordResetToken = nil
			row.PasswordResetExpiresAt = nil
			row.UpdatedAt = time.Now().UTC()
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

var _ Repository = (*memoryRepo)(nil)

func newTestService(t *testing.T) (Service, *memoryRepo, *recordingMailer) {
	t.Helper()
	repo := newMemoryRepo()
	mailer := &recordingMailer{}
	return NewService(repo, mailer, testLogger()), repo, mailer
}

func registerAlice(t *testing.T, svc Service) UserResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "P@ssw0rd!",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterDefaults(t *testing.T) {
	svc, _, mailer := newTestService(t)

	resp := registerAlice(t, svc)
	require.Equal(t, RoleSubscriber, resp.Role)
	require.True(t, resp.IsActive)
	require.False(t, resp.EmailVerified)
	require.Equal(t, 1, mailer.verificationCount(), "registration should enqueue a verification mail")
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []CreateUserRequest{
		{Username: "al", Email: "a@example.com", Password: "longenough1"},
		{Username: "has-dash", Email: "a@example.com", Password: "longenough1"},
		{Username: "alice", Email: "not-an-email", Password: "longenough1"},
		{Username: "alice", Email: "a@example.com", Password: "short"},
	}
	for _, req := range cases {
		_, err := svc.Register(ctx, req)
		var validation ValidationError
		require.ErrorAs(t, err, &validation, "request %+v", req)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registerAlice(t, svc)

	_, err := svc.Register(ctx, CreateUserRequest{Username: "alice", Email: "other@example.com", Password: "P@ssw0rd!"})
	require.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Register(ctx, CreateUserRequest{Username: "alice2", Email: "alice@example.com", Password: "P@ssw0rd!"})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginCollapsesFailureCauses(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)

	// Unknown identifier.
	_, err := svc.Login(ctx, LoginRequest{UsernameOrEmail: "nobody", Password: "P@ssw0rd!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Wrong password.
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Correct credentials, but unverified.
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "P@ssw0rd!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Verified but inactive.
	repo.mu.Lock()
	repo.rows[resp.ID].EmailVerified = true
	repo.rows[resp.ID].IsActive = false
	repo.mu.Unlock()
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "P@ssw0rd!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Verified and active.
	repo.mu.Lock()
	repo.rows[resp.ID].IsActive = true
	repo.mu.Unlock()
	summary, err := svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "P@ssw0rd!"})
	require.NoError(t, err)
	require.Equal(t, "alice", summary.Username)
	require.Equal(t, RoleSubscriber, summary.Role)

	// Email works as identifier too.
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice@example.com", Password: "P@ssw0rd!"})
	require.NoError(t, err)
}

func TestVerifyEmailSingleUse(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	registerAlice(t, svc)
	require.Equal(t, 1, mailer.verificationCount())
	token := mailer.verifications[0]

	ok, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	// Second consumption of the same token fails.
	ok, err = svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResendVerificationCooldownAndEnumeration(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)
	require.Equal(t, 1, mailer.verificationCount())

	// First resend goes through and issues a fresh token.
	require.NoError(t, svc.ResendVerification(ctx, "alice@example.com"))
	require.Equal(t, 2, mailer.verificationCount())

	// Second resend inside the cooldown is rejected (case-insensitive key).
	err := svc.ResendVerification(ctx, "ALICE@example.com")
	require.ErrorIs(t, err, ErrResendCooldown)
	require.Equal(t, 2, mailer.verificationCount())

	// Unknown email succeeds with no observable difference.
	require.NoError(t, svc.ResendVerification(ctx, "ghost@example.com"))
	require.Equal(t, 2, mailer.verificationCount())

	// Past the cooldown, an already verified email succeeds without
	// issuing anything.
	svc.(*service).resends.now = func() time.Time { return time.Now().Add(2 * ResendCooldown) }
	repo.mu.Lock()
	repo.rows[resp.ID].EmailVerified = true
	repo.mu.Unlock()
	require.NoError(t, svc.ResendVerification(ctx, "alice@example.com"))
	require.Equal(t, 2, mailer.verificationCount())
}

func TestResendOverwritesPriorToken(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	registerAlice(t, svc)
	first := mailer.verifications[0]

	require.NoError(t, svc.ResendVerification(ctx, "alice@example.com"))
	second := mailer.verifications[1]
	require.NotEqual(t, first, second)

	// The overwritten token is permanently invalid.
	ok, err := svc.VerifyEmail(ctx, first)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.VerifyEmail(ctx, second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)

	err := svc.ChangePassword(ctx, resp.ID, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "NewP@ssw0rd"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, resp.ID, ChangePasswordRequest{CurrentPassword: "P@ssw0rd!", NewPassword: "short"})
	var validation ValidationError
	require.ErrorAs(t, err, &validation)

	require.NoError(t, svc.ChangePassword(ctx, resp.ID, ChangePasswordRequest{CurrentPassword: "P@ssw0rd!", NewPassword: "NewP@ssw0rd"}))

	err = svc.ChangePassword(ctx, uuid.New(), ChangePasswordRequest{CurrentPassword: "P@ssw0rd!", NewPassword: "NewP@ssw0rd"})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)
	originalHash := repo.rows[resp.ID].PasswordHash

	expired := "expired-token"
	require.NoError(t, repo.SetPasswordResetToken(ctx, resp.ID, expired, time.Now().Add(-time.Minute)))

	err := svc.ResetPassword(ctx, expired, "BrandNewPass1")
	var validation ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, originalHash, repo.rows[resp.ID].PasswordHash, "expired token must not change the hash")
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)
	repo.mu.Lock()
	repo.rows[resp.ID].EmailVerified = true
	repo.mu.Unlock()

	// Unknown email: same outcome, no token issued.
	require.NoError(t, svc.ForgotPassword(ctx, "ghost@example.com"))
	require.Empty(t, mailer.resets)

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	require.Len(t, mailer.resets, 1)
	token := mailer.resets[0]

	require.NoError(t, svc.ResetPassword(ctx, token, "BrandNewPass1"))

	// Token is single-use.
	err := svc.ResetPassword(ctx, token, "AnotherPass12")
	var validation ValidationError
	require.ErrorAs(t, err, &validation)

	// Old password no longer works, new one does.
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "P@ssw0rd!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "BrandNewPass1"})
	require.NoError(t, err)
}

func TestUpdateProfilePatchSemantics(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)

	bio := "writes about databases"
	updated, err := svc.UpdateProfile(ctx, resp.ID, UpdateUserRequest{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, &bio, updated.Bio)

	name := "Alice"
	updated, err = svc.UpdateProfile(ctx, resp.ID, UpdateUserRequest{DisplayName: &name})
	require.NoError(t, err)
	require.Equal(t, &name, updated.DisplayName)
	require.NotNil(t, updated.Bio, "unset fields must keep their values")
	require.Equal(t, bio, *updated.Bio)

	badURL := "not a url"
	_, err = svc.UpdateProfile(ctx, resp.ID, UpdateUserRequest{WebsiteURL: &badURL})
	var validation ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = svc.UpdateProfile(ctx, uuid.New(), UpdateUserRequest{DisplayName: &name})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp := registerAlice(t, svc)

	full, err := svc.GetUser(ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", full.Username)

	summary, err := svc.GetUserSummary(ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", summary.Username)

	_, err = svc.GetUser(ctx, uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	require.True(t, strings.EqualFold(NormalizeEmail("ÅKE@example.com"), "åke@example.com"))
}
