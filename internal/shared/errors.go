package shared

import "errors"

var (
	// ErrUnauthorized indicates a missing or invalid session identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the authenticated identity lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
