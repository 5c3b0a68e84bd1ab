package service

import (
	"errors"
	"fmt"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

var (
	ErrEmailTaken         = errors.New("email_taken")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrOTPExpired         = errors.New("otp_expired")
	ErrOTPInvalid         = errors.New("otp_invalid")
	ErrAlreadyVerified    = errors.New("already_verified")
	ErrNotVerified        = errors.New("not_verified")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrRoleMismatch       = errors.New("role_mismatch")
	ErrEmailUnavailable   = errors.New("email_unavailable")
)

// RoleMismatchError is returned when a federated login selects a role other
// than the one the account was created with.
type RoleMismatchError struct {
	Existing domain.Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("Account exists as %s. Please use the %s login.", e.Existing, e.Existing)
}

func (e *RoleMismatchError) Is(target error) bool { return target == ErrRoleMismatch }
