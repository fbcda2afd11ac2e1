package access

import "errors"

var (
	// ErrInvalidInput indicates malformed or missing request fields.
	ErrInvalidInput = errors.New("access: invalid input")
	// ErrInvalidCredentials is returned for both unknown accounts and wrong
	// passwords so callers cannot enumerate registered emails.
	ErrInvalidCredentials = errors.New("access: invalid credentials")
	// ErrForbidden covers role-matrix denials and inactive-status logins.
	ErrForbidden = errors.New("access: forbidden")
	// ErrConflict covers duplicate emails, duplicate client admins and
	// already-consumed invitations.
	ErrConflict = errors.New("access: conflict")
	// ErrNotFound indicates a missing principal or invitation for a keyed lookup.
	ErrNotFound = errors.New("access: not found")
	// ErrInvalidToken indicates a bad signature, wrong scope or expired token.
	ErrInvalidToken = errors.New("access: invalid token")
	// ErrInvalidCode indicates an MFA code mismatch.
	ErrInvalidCode = errors.New("access: invalid mfa code")
	// ErrCodeExpired indicates the pending OTP code lapsed or was never issued.
	ErrCodeExpired = errors.New("access: mfa code expired")
	// ErrMFANotConfigured indicates a verification attempt before enrollment.
	ErrMFANotConfigured = errors.New("access: mfa method not configured")
)
