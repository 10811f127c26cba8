package users

import "errors"

// Sentinel errors surfaced by the users service and repository.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists indicates the username uniqueness invariant would be violated.
	ErrUsernameExists = errors.New("username already exists")
	// ErrEmailExists indicates the email uniqueness invariant would be violated.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials covers unknown identifier, wrong password, and
	// inactive or unverified accounts. The three cases are deliberately
	// indistinguishable so responses leak nothing about which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrResendCooldown rejects a verification resend inside the cooldown window.
	ErrResendCooldown = errors.New("please wait before requesting another verification email")
)

// ValidationError reports a request that failed input validation. The
// message is safe to echo to the caller.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError constructs a ValidationError.
func NewValidationError(message string) ValidationError {
	return ValidationError{Message: message}
}
