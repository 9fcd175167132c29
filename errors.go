package authcore

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the authentication core.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication core.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCredentialNotFound is an exported constant or variable used by the authentication core.
	ErrCredentialNotFound = errors.New("credential record not found")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication core.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRoleInvalid is an exported constant or variable used by the authentication core.
	ErrRoleInvalid = errors.New("invalid role")
	// ErrSessionNotFound is an exported constant or variable used by the authentication core.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is an exported constant or variable used by the authentication core.
	ErrSessionExpired = errors.New("session expired")
	// ErrPermissionDenied is an exported constant or variable used by the authentication core.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication core.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordRoleUnsupported is an exported constant or variable used by the authentication core.
	ErrPasswordRoleUnsupported = errors.New("role does not carry a password")
	// ErrCSRFRejected is an exported constant or variable used by the authentication core.
	ErrCSRFRejected = errors.New("csrf token rejected")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication core.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrAuthorityNotReady is an exported constant or variable used by the authentication core.
	ErrAuthorityNotReady = errors.New("authority not initialized")
)
