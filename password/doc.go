// Package password implements password hashing, verification, and strength
// scoring with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The encoded form self-describes its parameters, so the [Hasher] supports
// transparent upgrades: if a stored hash was produced with weaker parameters,
// [Hasher.NeedsRehash] returns true and the caller can re-hash on the next
// successful login.
//
// # Architecture boundaries
//
// This package owns hashing, verification, and strength scoring only.
// Password policy decisions (which score is acceptable, reuse rules) belong
// to the Authority.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
