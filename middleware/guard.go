package middleware

import (
	"context"
	"net"
	"net/http"

	authcore "github.com/eduadmin/authcore"
	"github.com/eduadmin/authcore/internal"
	"github.com/eduadmin/authcore/session"
)

// SlotCookieName is the cookie that carries the opaque session slot ID.
const SlotCookieName = "session_slot"

type sessionContextKey struct{}

// SessionFromContext returns the live session a guard injected into the
// request context.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}

// RequireLogin rejects requests that do not carry a live session slot.
func RequireLogin(authority *authcore.Authority) func(http.Handler) http.Handler {
	return guard(authority, func(ctx context.Context, slotID string) authcore.GuardDecision {
		return authority.RequireLogin(ctx, slotID)
	})
}

// RequirePermission rejects requests whose session snapshot does not
// include the named permission.
func RequirePermission(authority *authcore.Authority, permissionName string) func(http.Handler) http.Handler {
	return guard(authority, func(ctx context.Context, slotID string) authcore.GuardDecision {
		return authority.RequirePermission(ctx, slotID, permissionName)
	})
}

func guard(authority *authcore.Authority, decide func(context.Context, string) authcore.GuardDecision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authority == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			slotID, ok := slotFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := ClientContext(r)

			decision := decide(ctx, slotID)
			if !decision.Allowed {
				status := decision.Status
				if status == 0 {
					status = http.StatusUnauthorized
				}
				http.Error(w, decision.Message, status)
				return
			}

			sess, err := authority.SessionInfo(ctx, slotID)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientContext attaches the request's client IP and User-Agent to its
// context so the Authority can derive the rate-limit fingerprint. Login
// handlers should use it too, not only the guards.
func ClientContext(r *http.Request) context.Context {
	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	return authcore.WithUserAgent(ctx, r.UserAgent())
}

func slotFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SlotCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	// Reject malformed cookie values before they reach the store.
	if _, err := internal.ParseSlotID(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
