// Package rate provides the Redis-backed sliding-window request limiter used
// to gate authentication attempts.
//
// # Window semantics
//
// Each client identifier owns a sorted set of request timestamps. Every
// evaluation trims entries older than the trailing window, counts what
// remains, and only records the new request when the budget allows it. The
// window slides continuously — there are no fixed buckets — and the trim
// plus key TTL keep the structure bounded.
//
// # What this package must NOT do
//
//   - Derive client identifiers (callers pass an opaque key).
//   - Implement domain policy such as which operations are gated.
//   - Be imported outside the authcore module.
package rate
