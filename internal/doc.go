// Package internal contains helper utilities that are intentionally private
// to authcore: secure random slot identifiers and client fingerprint hashing.
//
// # Sub-packages
//
//   - rate — Redis-backed sliding-window rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
