// Package csrf implements per-form single-use token issuance and
// verification backed by Redis.
//
// # Token lifecycle
//
// At most one valid token exists per (session slot, form name) pair;
// issuing again overwrites. Verification consumes the stored token
// unconditionally — matching or not — so a token can satisfy at most one
// verification attempt.
//
// # What this package must NOT do
//
//   - Decide which requests need CSRF protection (callers gate).
//   - Read or interpret session contents.
package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eduadmin/authcore/secretbox"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication core.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Registry issues and verifies single-use form tokens scoped to a session
// slot.
type Registry struct {
	redis      redis.UniversalClient
	prefix     string
	tokenBytes int
	ttl        time.Duration
}

// New creates a token [Registry]. prefix sets the key namespace,
// tokenBytes the token entropy, and ttl bounds how long an unconsumed
// token stays valid.
func New(redisClient redis.UniversalClient, prefix string, tokenBytes int, ttl time.Duration) *Registry {
	if prefix == "" {
		prefix = "csrf"
	}
	if tokenBytes <= 0 {
		tokenBytes = secretbox.DefaultTokenBytes
	}
	return &Registry{
		redis:      redisClient,
		prefix:     prefix,
		tokenBytes: tokenBytes,
		ttl:        ttl,
	}
}

// Issue generates a fresh token for formName, overwriting any prior token
// for that form, and returns it for embedding in the rendered form.
func (r *Registry) Issue(ctx context.Context, slotID, formName string) (string, error) {
	token, err := secretbox.Token(r.tokenBytes)
	if err != nil {
		return "", err
	}

	if err := r.redis.Set(ctx, r.key(slotID, formName), token, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return token, nil
}

// Verify consumes the stored token for formName and reports whether
// supplied matches it. The stored entry is deleted whatever the outcome.
func (r *Registry) Verify(ctx context.Context, slotID, formName, supplied string) (bool, error) {
	stored, err := r.redis.GetDel(ctx, r.key(slotID, formName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1, nil
}

// PurgeSlot removes every outstanding token for the slot. Called on
// logout so orphaned tokens do not outlive their session.
func (r *Registry) PurgeSlot(ctx context.Context, slotID string) error {
	var cursor uint64

	for {
		keys, next, err := r.redis.Scan(ctx, cursor, r.key(slotID, "*"), 64).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		if len(keys) > 0 {
			if err := r.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *Registry) key(slotID, formName string) string {
	return r.prefix + ":" + slotID + ":" + formName
}
