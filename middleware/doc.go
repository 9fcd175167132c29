// Package middleware exposes HTTP middleware adapters that enforce
// authcore guard decisions on http.Handler chains.
//
// # Guards
//
//   - [RequireLogin] — rejects requests without a live session (401).
//   - [RequirePermission] — additionally checks one permission name (403).
//
// Each guard reads the session slot from a cookie, attaches the client IP
// and User-Agent to the request context, asks the Authority for a
// decision, and injects the live session into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Authority calls. It does
// NOT implement authentication logic itself — all decisions are delegated
// to the Authority's guards.
//
// # What this package must NOT do
//
//   - Read or write session contents (the Authority owns session state).
//   - Access Redis (the Authority handles I/O).
//   - Make authorization decisions beyond pass/reject from the guards.
package middleware
