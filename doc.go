// Package authcore provides the authentication and session-security core
// for an educational organization's management backend: argon2id
// credential verification, Redis-backed opaque session slots with idle
// expiry, bitmask-based role→permission authorization, single-use CSRF
// tokens, and sliding-window login rate limiting.
//
// The package is designed for concurrent server workloads: Authority
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Authority], [Builder],
// [Config], and value types (Result, GuardDecision, MetricsSnapshot).
// Session encoding, rate limiting, and slot-ID generation live under
// internal/ or in leaf subpackages and are coordinated only here.
//
// # What this package must NOT do
//
//   - Persist credential records (callers supply a [CredentialStore]).
//   - Perform HTTP routing or templating (the middleware package adapts
//     guard decisions onto http.Handler).
//   - Expose Redis clients or encoding details in its public API.
//
// # Security contract
//
// Login failures return one generic message regardless of whether the
// identifier or the secret was wrong. The rate gate runs before any
// credential-store access. Permission sets are value snapshots taken at
// login; revoking a role affects only future sessions.
package authcore
