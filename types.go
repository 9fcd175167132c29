package authcore

import (
	"context"
	"net/http"
	"time"

	"github.com/eduadmin/authcore/session"
)

// Role is the closed set of principals the authority recognizes.
//
// Role instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Role string

const (
	// RoleProgrammer is an exported constant or variable used by the authentication core.
	RoleProgrammer Role = "Programmer"
	// RoleSupervisor is an exported constant or variable used by the authentication core.
	RoleSupervisor Role = "Supervisor"
	// RoleTeacher is an exported constant or variable used by the authentication core.
	RoleTeacher Role = "Teacher"
)

// ParseRole describes the parserole operation and its observable behavior.
//
// ParseRole may return an error when input validation, dependency calls, or security checks fail.
// ParseRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleProgrammer, RoleSupervisor, RoleTeacher:
		return Role(value), nil
	}
	return "", ErrRoleInvalid
}

// CredentialRecord is the account record returned by [CredentialStore].
// Programmer accounts carry Username and PasswordHash; Supervisor and
// Teacher accounts carry a 4-digit PersonalCode instead. The core treats
// records as read-only.
type CredentialRecord struct {
	UserID       string
	Username     string
	PersonalCode string
	Role         Role
	PasswordHash string
	DisplayName  string
	Active       bool
}

// CredentialStore is the interface callers implement to integrate the
// authority with their account database. Implementations should already
// filter lookups to active records; the core additionally refuses to
// open a session for a record whose Active flag is false.
//
// Lookup misses are reported as [ErrCredentialNotFound].
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (CredentialRecord, error)
	FindByID(ctx context.Context, userID string) (CredentialRecord, error)
	FindByPersonalCode(ctx context.Context, code string, role Role) (CredentialRecord, error)
	RecordLogin(ctx context.Context, userID, ip string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// Result is returned by the login operations. Message is safe to show to
// the end user; failure messages never disclose whether the identifier or
// the secret was wrong.
type Result struct {
	Success bool
	Message string
	Session *session.Session
}

// GuardDecision is returned by [Authority.RequireLogin] and
// [Authority.RequirePermission]. Status carries the HTTP status a
// transport adapter should answer with when Allowed is false.
type GuardDecision struct {
	Allowed bool
	Status  int
	Message string
}

func allowDecision() GuardDecision {
	return GuardDecision{Allowed: true, Status: http.StatusOK}
}

func denyDecision(status int, message string) GuardDecision {
	return GuardDecision{Allowed: false, Status: status, Message: message}
}
