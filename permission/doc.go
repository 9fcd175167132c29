// Package permission implements the static role-to-permission catalog that
// drives authorization decisions.
//
// # Model
//
// A [Registry] maps permission names to bit positions; a [Catalog] maps role
// names to [Mask64] bitmasks built from those positions. Both are populated
// at startup and frozen for the process lifetime. Catalog lookups return the
// mask by value, so a session holds a snapshot of the role's permissions at
// login time, not a live reference.
//
// # What this package must NOT do
//
//   - Make authorization decisions (the Authority interprets masks).
//   - Import any other authcore package.
//   - Mutate after Freeze.
package permission
