package authcore

import (
	"context"
	"errors"
)

// IssueCSRFToken describes the issuecsrftoken operation and its observable behavior.
//
// IssueCSRFToken may return an error when input validation, dependency calls, or security checks fail.
// IssueCSRFToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) IssueCSRFToken(ctx context.Context, slotID, formName string) (string, error) {
	if a == nil || a.csrf == nil {
		return "", ErrAuthorityNotReady
	}

	if _, err := a.liveSession(ctx, slotID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}

	token, err := a.csrf.Issue(ctx, slotID, formName)
	if err != nil {
		return "", err
	}

	a.metricInc(MetricCSRFIssued)
	return token, nil
}

// VerifyCSRFToken describes the verifycsrftoken operation and its observable behavior.
//
// VerifyCSRFToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyCSRFToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) VerifyCSRFToken(ctx context.Context, slotID, formName, supplied string) (bool, error) {
	if a == nil || a.csrf == nil {
		return false, ErrAuthorityNotReady
	}

	sess, err := a.liveSession(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, ErrUnauthorized
		}
		return false, err
	}

	ok, err := a.csrf.Verify(ctx, slotID, formName, supplied)
	if err != nil {
		return false, err
	}

	if !ok {
		a.metricInc(MetricCSRFRejected)
		a.emitAudit(ctx, auditEventCSRFRejected, false, sess.UserID, slotID, ErrCSRFRejected, func() map[string]string {
			return map[string]string{
				"form": formName,
			}
		})
	}

	return ok, nil
}
