package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/eduadmin/authcore/csrf"
	"github.com/eduadmin/authcore/internal"
	"github.com/eduadmin/authcore/internal/rate"
	"github.com/eduadmin/authcore/password"
	"github.com/eduadmin/authcore/permission"
	"github.com/eduadmin/authcore/sanitize"
	"github.com/eduadmin/authcore/secretbox"
	"github.com/eduadmin/authcore/session"
)

// User-facing messages. The login failure text is deliberately identical
// for unknown identifiers and wrong secrets so responses cannot be used
// to enumerate accounts.
const (
	msgLoginSuccess   = "login successful"
	msgLoginFailure   = "username or password incorrect"
	msgLoginRateLimit = "too many login attempts, try again later"
	msgNotLoggedIn    = "not logged in"
	msgPermissionDeny = "permission denied"
)

// Authority defines a public type used by authcore APIs.
//
// Authority instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Authority struct {
	config      Config
	catalog     *permission.Catalog
	store       *session.Store
	limiter     *rate.Limiter
	csrf        *csrf.Registry
	audit       *auditDispatcher
	metrics     *Metrics
	hasher      *password.Hasher
	credentials CredentialStore

	// now is overridable in tests.
	now func() time.Time
}

func (a *Authority) timeNow() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		a.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) AuditDropped() uint64 {
	if a == nil || a.audit == nil {
		return 0
	}
	return a.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

func (a *Authority) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

// clientFingerprint derives the rate-limit key from transport identity,
// never from session identity, so dropping a session cookie does not
// reset the attempt counter.
func (a *Authority) clientFingerprint(ctx context.Context) string {
	return internal.Fingerprint(clientIPFromContext(ctx), userAgentFromContext(ctx))
}

// rateGate evaluates the per-client login window. It runs before any
// credential store access; a denied client never reaches the store.
func (a *Authority) rateGate(ctx context.Context, fingerprint string) (*Result, error) {
	allowed, err := a.limiter.Allow(ctx, fingerprint, a.config.Security.MaxLoginAttempts, a.config.Security.LoginWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if allowed {
		return nil, nil
	}

	a.metricInc(MetricLoginRateLimited)
	a.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
	a.emitRateLimit(ctx, "login", func() map[string]string {
		return map[string]string{
			"fingerprint": fingerprint,
		}
	})

	return &Result{Success: false, Message: msgLoginRateLimit}, nil
}

// LoginAttempts describes the loginattempts operation and its observable behavior.
//
// LoginAttempts may return an error when input validation, dependency calls, or security checks fail.
// LoginAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) LoginAttempts(ctx context.Context) (int, error) {
	if a == nil || a.limiter == nil {
		return 0, ErrAuthorityNotReady
	}

	count, err := a.limiter.Attempts(ctx, a.clientFingerprint(ctx), a.config.Security.LoginWindow)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (a *Authority) loginFailure(ctx context.Context, userID, reason string) *Result {
	a.metricInc(MetricLoginFailure)
	a.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return &Result{Success: false, Message: msgLoginFailure}
}

// LoginWithCredentials describes the loginwithcredentials operation and its observable behavior.
//
// LoginWithCredentials may return an error when input validation, dependency calls, or security checks fail.
// LoginWithCredentials does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) LoginWithCredentials(ctx context.Context, username, pass string) (*Result, error) {
	if a == nil || a.hasher == nil {
		return nil, ErrAuthorityNotReady
	}

	if denied, err := a.rateGate(ctx, a.clientFingerprint(ctx)); denied != nil || err != nil {
		return denied, err
	}

	username = sanitize.Sanitize(username, sanitize.KindString)
	if username == "" || pass == "" {
		return a.loginFailure(ctx, "", "empty_input"), nil
	}

	rec, err := a.credentials.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return a.loginFailure(ctx, "", "user_not_found"), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Username login is the programmer path. Code-holding roles never
	// carry a password hash.
	if rec.Role != RoleProgrammer {
		return a.loginFailure(ctx, rec.UserID, "role_mismatch"), nil
	}

	ok, err := a.hasher.Verify(pass, rec.PasswordHash)
	if err != nil || !ok {
		return a.loginFailure(ctx, rec.UserID, "password_mismatch"), nil
	}

	if a.config.Password.RehashOnLogin {
		if needsRehash, err := a.hasher.NeedsRehash(rec.PasswordHash); err == nil && needsRehash {
			if upgradedHash, err := a.hasher.Hash(pass); err == nil {
				// Rehash persistence is best-effort and must not block a successful login.
				if err := a.credentials.UpdatePasswordHash(ctx, rec.UserID, upgradedHash); err != nil {
					log.Print("authcore: password rehash update failed")
				}
			} else {
				log.Print("authcore: password rehash generation failed")
			}
		}
	}
	pass = ""

	return a.createSession(ctx, rec)
}

// LoginWithPersonalCode describes the loginwithpersonalcode operation and its observable behavior.
//
// LoginWithPersonalCode may return an error when input validation, dependency calls, or security checks fail.
// LoginWithPersonalCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) LoginWithPersonalCode(ctx context.Context, code string, role Role) (*Result, error) {
	if a == nil || a.hasher == nil {
		return nil, ErrAuthorityNotReady
	}

	if denied, err := a.rateGate(ctx, a.clientFingerprint(ctx)); denied != nil || err != nil {
		return denied, err
	}

	if role != RoleSupervisor && role != RoleTeacher {
		return a.loginFailure(ctx, "", "role_not_allowed"), nil
	}

	code = sanitize.Sanitize(code, sanitize.KindInt)
	if !isPersonalCode(code) {
		return a.loginFailure(ctx, "", "code_format"), nil
	}

	rec, err := a.credentials.FindByPersonalCode(ctx, code, role)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return a.loginFailure(ctx, "", "code_not_found"), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if rec.Role != role {
		return a.loginFailure(ctx, rec.UserID, "role_mismatch"), nil
	}

	return a.createSession(ctx, rec)
}

func (a *Authority) createSession(ctx context.Context, rec CredentialRecord) (*Result, error) {
	// Stores should never surface disabled accounts, but a session for one
	// must not open even when they do.
	if !rec.Active {
		return a.loginFailure(ctx, rec.UserID, "inactive_account"), nil
	}

	now := a.timeNow()

	mask, ok := a.catalog.Mask(string(rec.Role))
	if !ok {
		return a.loginFailure(ctx, rec.UserID, "role_mask_missing"), nil
	}

	slot, err := internal.NewSlotID()
	if err != nil {
		return nil, err
	}

	token, err := secretbox.Token(a.config.Session.TokenBytes)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		SlotID:       slot.String(),
		UserID:       rec.UserID,
		Role:         string(rec.Role),
		DisplayName:  rec.DisplayName,
		Mask:         mask,
		Token:        token,
		LoginAt:      now.Unix(),
		LastActivity: now.Unix(),
	}

	if err := a.store.Save(ctx, sess, a.config.Session.IdleTimeout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Login metadata is best-effort; a recording failure must not undo
	// an already-established session.
	if err := a.credentials.RecordLogin(ctx, rec.UserID, clientIPFromContext(ctx), now); err != nil {
		log.Print("authcore: login metadata recording failed")
	}

	a.metricInc(MetricLoginSuccess)
	a.metricInc(MetricSessionCreated)
	a.emitAudit(ctx, auditEventLoginSuccess, true, rec.UserID, sess.SlotID, nil, func() map[string]string {
		return map[string]string{
			"role": string(rec.Role),
		}
	})

	return &Result{Success: true, Message: msgLoginSuccess, Session: sess}, nil
}

// ValidateSession describes the validatesession operation and its observable behavior.
//
// ValidateSession may return an error when input validation, dependency calls, or security checks fail.
// ValidateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) ValidateSession(ctx context.Context, slotID string) (bool, error) {
	if a == nil || a.store == nil {
		return false, ErrAuthorityNotReady
	}

	sess, err := a.store.Get(ctx, slotID)
	if err != nil {
		if errors.Is(err, session.ErrSlotNotFound) || errors.Is(err, session.ErrSessionCorrupt) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := a.timeNow()
	if a.idleExpired(sess, now) {
		if err := a.expireSession(ctx, sess); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := a.store.Touch(ctx, slotID, now.Unix(), a.config.Session.IdleTimeout); err != nil {
		if errors.Is(err, session.ErrSlotNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	a.metricInc(MetricSessionValidated)
	return true, nil
}

func (a *Authority) idleExpired(sess *session.Session, now time.Time) bool {
	idle := now.Unix() - sess.LastActivity
	return idle > int64(a.config.Session.IdleTimeout/time.Second)
}

// expireSession applies the full logout side effects for an idle-expired
// slot so a timed-out session leaves no residual state behind.
func (a *Authority) expireSession(ctx context.Context, sess *session.Session) error {
	if err := a.store.Delete(ctx, sess.SlotID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := a.csrf.PurgeSlot(ctx, sess.SlotID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	a.metricInc(MetricSessionExpired)
	a.emitAudit(ctx, auditEventSessionExpired, false, sess.UserID, sess.SlotID, ErrSessionExpired, nil)

	return nil
}

// liveSession loads the slot without refreshing its activity window.
// Idle-expired slots are reported as [ErrSessionNotFound] after their
// logout side effects run.
func (a *Authority) liveSession(ctx context.Context, slotID string) (*session.Session, error) {
	sess, err := a.store.Get(ctx, slotID)
	if err != nil {
		if errors.Is(err, session.ErrSlotNotFound) || errors.Is(err, session.ErrSessionCorrupt) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if a.idleExpired(sess, a.timeNow()) {
		if err := a.expireSession(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

// SessionInfo returns the session stored in the slot without sliding its
// activity window. Transport adapters use it to expose the authenticated
// principal to handlers.
func (a *Authority) SessionInfo(ctx context.Context, slotID string) (*session.Session, error) {
	if a == nil || a.store == nil {
		return nil, ErrAuthorityNotReady
	}
	return a.liveSession(ctx, slotID)
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) Logout(ctx context.Context, slotID string) error {
	if a == nil || a.store == nil {
		return ErrAuthorityNotReady
	}

	sess, err := a.store.Get(ctx, slotID)
	if err != nil && !errors.Is(err, session.ErrSlotNotFound) && !errors.Is(err, session.ErrSessionCorrupt) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := a.store.Delete(ctx, slotID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := a.csrf.PurgeSlot(ctx, slotID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if sess != nil {
		a.metricInc(MetricLogout)
		a.emitAudit(ctx, auditEventLogoutSession, true, sess.UserID, slotID, nil, nil)
	}

	return nil
}

// HasPermission reports whether the slot holds a live session whose
// permission snapshot includes name. It reads the snapshot taken at
// login; later catalog changes do not affect existing sessions.
func (a *Authority) HasPermission(ctx context.Context, slotID, name string) bool {
	if a == nil || a.catalog == nil {
		return false
	}

	sess, err := a.liveSession(ctx, slotID)
	if err != nil {
		return false
	}

	return a.maskHas(sess.Mask, name)
}

// HasRole reports whether the slot holds a live session for the given
// role.
func (a *Authority) HasRole(ctx context.Context, slotID string, role Role) bool {
	if a == nil {
		return false
	}

	sess, err := a.liveSession(ctx, slotID)
	if err != nil {
		return false
	}

	return sess.Role == string(role)
}

func (a *Authority) maskHas(mask permission.Mask64, name string) bool {
	bit, ok := a.catalog.Bit(name)
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// PermissionNames returns the permission names carried by the session's
// snapshot, sorted by catalog bit order.
func (a *Authority) PermissionNames(ctx context.Context, slotID string) []string {
	if a == nil || a.catalog == nil {
		return nil
	}

	sess, err := a.liveSession(ctx, slotID)
	if err != nil {
		return nil
	}

	return a.catalog.Names(sess.Mask)
}

// RequireLogin describes the requirelogin operation and its observable behavior.
//
// RequireLogin may return an error when input validation, dependency calls, or security checks fail.
// RequireLogin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) RequireLogin(ctx context.Context, slotID string) GuardDecision {
	if a == nil {
		return denyDecision(http.StatusUnauthorized, msgNotLoggedIn)
	}

	ok, err := a.ValidateSession(ctx, slotID)
	if err != nil || !ok {
		return denyDecision(http.StatusUnauthorized, msgNotLoggedIn)
	}

	return allowDecision()
}

// RequirePermission describes the requirepermission operation and its observable behavior.
//
// RequirePermission may return an error when input validation, dependency calls, or security checks fail.
// RequirePermission does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Authority) RequirePermission(ctx context.Context, slotID, name string) GuardDecision {
	if decision := a.RequireLogin(ctx, slotID); !decision.Allowed {
		return decision
	}

	sess, err := a.liveSession(ctx, slotID)
	if err != nil {
		return denyDecision(http.StatusUnauthorized, msgNotLoggedIn)
	}

	if !a.maskHas(sess.Mask, name) {
		a.metricInc(MetricPermissionDenied)
		a.emitAudit(ctx, auditEventPermissionDenied, false, sess.UserID, slotID, ErrPermissionDenied, func() map[string]string {
			return map[string]string{
				"permission": name,
			}
		})
		return denyDecision(http.StatusForbidden, msgPermissionDeny)
	}

	return allowDecision()
}

func isPersonalCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
