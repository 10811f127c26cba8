package users

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Mailer delivers account lifecycle email out of band. Implementations must
// not block on actual delivery; the service treats a failed handoff as a
// warning, never as a request failure.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Service is the sole authority on account business rules. All inputs are
// validated before touching the repository.
type Service interface {
	Register(ctx context.Context, req CreateUserRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (UserSummary, error)
	GetUser(ctx context.Context, id uuid.UUID) (UserResponse, error)
	GetUserSummary(ctx context.Context, id uuid.UUID) (UserSummary, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (UserResponse, error)
	ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error
	SetVerificationToken(ctx context.Context, id uuid.UUID) (string, error)
	VerifyEmail(ctx context.Context, token string) (bool, error)
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type service struct {
	repo         Repository
	mailer       Mailer
	logger       *slog.Logger
	validate     *validator.Validate
	verifyTokens *TokenIssuer
	resetTokens  *TokenIssuer
	resends      *ResendLimiter
}

// NewService constructs the user service over the injected repository and mailer.
func NewService(repo Repository, mailer Mailer, logger *slog.Logger) Service {
	return &service{
		repo:         repo,
		mailer:       mailer,
		logger:       logger,
		validate:     newValidate(),
		verifyTokens: NewVerificationTokenIssuer(),
		resetTokens:  NewPasswordResetTokenIssuer(),
		resends:      NewResendLimiter(ResendCooldown),
	}
}

// Register validates and creates a new account, then issues the initial
// verification token and hands the email off for delivery.
func (s *service) Register(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	if err := s.validateStruct(req); err != nil {
		return UserResponse{}, err
	}

	user, err := s.repo.Create(ctx, req)
	if err != nil {
		return UserResponse{}, err
	}

	if token, err := s.SetVerificationToken(ctx, user.ID); err != nil {
		s.logger.Warn("issue verification token", slog.String("user_id", user.ID.String()), slog.Any("error", err))
	} else if err := s.mailer.SendVerification(ctx, user.Email, token); err != nil {
		s.logger.Warn("enqueue verification mail", slog.Any("error", err))
	}

	return NewUserResponse(user), nil
}

// Login resolves the identifier, verifies the password, and requires an
// active, verified account. All three failure causes collapse into
// ErrInvalidCredentials so the response leaks nothing.
func (s *service) Login(ctx context.Context, req LoginRequest) (UserSummary, error) {
	if err := s.validateStruct(req); err != nil {
		return UserSummary{}, err
	}

	user, err := s.repo.FindByUsernameOrEmail(ctx, req.UsernameOrEmail)
	if err != nil {
		return UserSummary{}, err
	}
	if user == nil {
		return UserSummary{}, ErrInvalidCredentials
	}

	ok, err := s.repo.VerifyPassword(ctx, user, req.Password)
	if err != nil {
		return UserSummary{}, err
	}
	if !ok {
		return UserSummary{}, ErrInvalidCredentials
	}

	if !user.IsActive || !user.EmailVerified {
		return UserSummary{}, ErrInvalidCredentials
	}

	return NewUserSummary(user), nil
}

// GetUser fetches the public projection of a user.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (UserResponse, error) {
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}
	return NewUserResponse(user), nil
}

// GetUserSummary fetches the compact projection of a user.
func (s *service) GetUserSummary(ctx context.Context, id uuid.UUID) (UserSummary, error) {
	user, err := s.mustFind(ctx, id)
	if err != nil {
		return UserSummary{}, err
	}
	return NewUserSummary(user), nil
}

// UpdateProfile applies a partial profile update.
func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (UserResponse, error) {
	if err := s.validateStruct(req); err != nil {
		return UserResponse{}, err
	}
	user, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return UserResponse{}, err
	}
	return NewUserResponse(user), nil
}

// ChangePassword re-verifies the caller's current password before storing
// the new one.
func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error {
	if err := s.validateStruct(req); err != nil {
		return err
	}

	user, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.repo.VerifyPassword(ctx, user, req.CurrentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	return s.repo.ChangePassword(ctx, id, req.NewPassword)
}

// SetVerificationToken issues and persists a fresh verification token,
// returning the raw token for delivery.
func (s *service) SetVerificationToken(ctx context.Context, id uuid.UUID) (string, error) {
	token, expiresAt, err := s.verifyTokens.Issue()
	if err != nil {
		return "", err
	}
	if err := s.repo.SetEmailVerificationToken(ctx, id, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyEmail reports whether the repository consumed a matching unexpired token.
func (s *service) VerifyEmail(ctx context.Context, token string) (bool, error) {
	user, err := s.repo.VerifyEmail(ctx, token)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// ResendVerification re-issues a verification token behind the cooldown
// gate. Unknown and already-verified emails return the same success as a
// real pending verification, so account existence cannot be inferred.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	if !s.resends.Allow(NormalizeEmail(email)) {
		return ErrResendCooldown
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.EmailVerified {
		return nil
	}

	token, err := s.SetVerificationToken(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerification(ctx, user.Email, token); err != nil {
		s.logger.Warn("enqueue verification mail", slog.Any("error", err))
	}
	return nil
}

// ForgotPassword issues a reset token when the email belongs to an account.
// The outcome is identical either way.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, expiresAt, err := s.resetTokens.Issue()
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Warn("enqueue reset mail", slog.Any("error", err))
	}
	return nil
}

// ResetPassword consumes a reset token and applies the new password.
func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 || len(newPassword) > 128 {
		return NewValidationError("new password must be 8-128 characters")
	}

	user, err := s.repo.ResetPassword(ctx, token, newPassword)
	if err != nil {
		return err
	}
	if user == nil {
		return NewValidationError("invalid or expired reset token")
	}
	return nil
}

func (s *service) mustFind(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return NewValidationError("validation failed: " + err.Error())
	}
	return nil
}
