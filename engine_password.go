package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/eduadmin/authcore/password"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) ChangePassword(ctx context.Context, slotID, currentPass, newPass string) error {
	if a == nil || a.hasher == nil {
		return ErrAuthorityNotReady
	}

	sess, err := a.liveSession(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	// Only programmer accounts carry a password hash; code-holding roles
	// have nothing to change.
	if sess.Role != string(RoleProgrammer) {
		a.changeFailure(ctx, sess.UserID, slotID, ErrPasswordRoleUnsupported, "role_without_password")
		return ErrPasswordRoleUnsupported
	}

	rec, err := a.credentials.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := a.hasher.Verify(currentPass, rec.PasswordHash)
	if err != nil || !ok {
		a.changeFailure(ctx, rec.UserID, slotID, ErrInvalidCredentials, "current_password_mismatch")
		return ErrInvalidCredentials
	}

	if strength := password.CheckStrength(newPass); strength.Score < a.config.Password.MinStrengthScore {
		a.changeFailure(ctx, rec.UserID, slotID, ErrPasswordPolicy, "strength_below_minimum")
		return ErrPasswordPolicy
	}

	// A secret can clear the score gate on character variety alone while
	// still being shorter than the hasher accepts; that is a policy
	// failure, not a hashing error.
	if len(newPass) < password.MinPasswordBytes {
		a.changeFailure(ctx, rec.UserID, slotID, ErrPasswordPolicy, "below_minimum_length")
		return ErrPasswordPolicy
	}

	newHash, err := a.hasher.Hash(newPass)
	if err != nil {
		return err
	}

	if err := a.credentials.UpdatePasswordHash(ctx, rec.UserID, newHash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// A successful change clears the caller's attempt window so the next
	// login with the new password is not blocked by earlier mistakes.
	if err := a.limiter.Reset(ctx, a.clientFingerprint(ctx)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	a.metricInc(MetricPasswordChangeSuccess)
	a.emitAudit(ctx, auditEventPasswordChangeSuccess, true, rec.UserID, slotID, nil, nil)

	return nil
}

func (a *Authority) changeFailure(ctx context.Context, userID, slotID string, cause error, reason string) {
	a.metricInc(MetricPasswordChangeFailure)
	a.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, slotID, cause, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
}
