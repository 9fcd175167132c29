// Package session provides Redis-backed session persistence and compact
// binary session encoding for authentication hot paths.
//
// # Binary encoding
//
// Sessions are stored in Redis as a compact binary format (schema version
// v1). The encoder is append-only: future versions add fields but never
// reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT evaluate permissions or enforce idle-timeout policy — those
// responsibilities belong to the Authority.
//
// # What this package must NOT do
//
//   - Import authcore or csrf (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store plaintext secrets in [Session] fields.
package session
