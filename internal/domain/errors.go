package domain

import (
	"errors"
	"fmt"
)

// Error classes. Handlers map these to HTTP status codes; the specific
// errors below wrap exactly one class so errors.Is works on both levels.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication failure")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrState          = errors.New("invalid state")
)

var (
	ErrTokenInvalid       = fmt.Errorf("token invalid: %w", ErrAuthentication)
	ErrTokenExpired       = fmt.Errorf("token expired: %w", ErrAuthentication)
	ErrTokenClaimMismatch = fmt.Errorf("token claim mismatch: %w", ErrAuthentication)
	ErrTokenRevoked       = fmt.Errorf("token revoked: %w", ErrAuthentication)
	ErrRefreshNotActive   = fmt.Errorf("refresh token not active: %w", ErrAuthentication)
	ErrPasswordMismatch   = fmt.Errorf("password mismatch: %w", ErrAuthentication)

	ErrUserAlreadyExists       = fmt.Errorf("user already exists: %w", ErrConflict)
	ErrVerificationCodeInvalid = fmt.Errorf("verification code invalid: %w", ErrConflict)

	ErrUserNotFound = fmt.Errorf("user not found: %w", ErrNotFound)

	ErrUserInactive = fmt.Errorf("user inactive: %w", ErrState)
)
