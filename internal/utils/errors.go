package utils

import "errors"

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrEmailExists        = errors.New("email_exists")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInactiveUser       = errors.New("inactive_user")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrUserNotFound       = errors.New("user_not_found")

	// Two-factor
	ErrTwoFactorNotSetup   = errors.New("two_factor_not_setup")
	ErrTwoFactorNotEnabled = errors.New("two_factor_not_enabled")
	ErrInvalidTwoFactor    = errors.New("invalid_two_factor_code")
	ErrWrongPassword       = errors.New("wrong_password")

	// Password reset
	ErrInvalidResetToken = errors.New("invalid_or_expired_reset_token")
	ErrWeakPassword      = errors.New("weak_password")

	// For external service failures (e.g., SendGrid)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)
