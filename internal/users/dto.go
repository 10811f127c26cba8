package users

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// newValidate builds the validator used by the service, with the custom
// username rule (letters, digits, and underscores only).
func newValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=50,username_chars"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=8,max=128"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
}

// UpdateUserRequest is a partial profile update. Nil fields leave the
// existing values untouched.
type UpdateUserRequest struct {
	DisplayName   *string `json:"display_name" validate:"omitempty,max=100"`
	Bio           *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL     *string `json:"avatar_url" validate:"omitempty,url,max=500"`
	SocialTwitter *string `json:"social_twitter" validate:"omitempty,max=100"`
	SocialGithub  *string `json:"social_github" validate:"omitempty,max=100"`
	WebsiteURL    *string `json:"website_url" validate:"omitempty,url,max=500"`
}

// LoginRequest carries credentials; the identifier may be a username or an email.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// ChangePasswordRequest re-verifies the current password before accepting
// the new one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// UserResponse is the public projection of a user. It never carries the
// password hash or pending tokens.
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	DisplayName   *string   `json:"display_name"`
	Bio           *string   `json:"bio"`
	AvatarURL     *string   `json:"avatar_url"`
	Role          Role      `json:"role"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	SocialTwitter *string   `json:"social_twitter"`
	SocialGithub  *string   `json:"social_github"`
	WebsiteURL    *string   `json:"website_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserSummary is the compact projection used for listings and login responses.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Role        Role      `json:"role"`
}

// NewUserResponse projects a User into its public shape.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		SocialTwitter: u.SocialTwitter,
		SocialGithub:  u.SocialGithub,
		WebsiteURL:    u.WebsiteURL,
		CreatedAt:     u.CreatedAt,
	}
}

// NewUserSummary projects a User into its summary shape.
func NewUserSummary(u *User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
	}
}
