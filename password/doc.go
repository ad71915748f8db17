// Package password implements salted, memory-hard password hashing with argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Every call to [Argon2.Hash] draws a fresh salt, so two hashes of one password
// differ while both verify. A stored string that cannot be parsed is reported
// as [ErrMalformedHash] instead of a failed match: it indicates corrupt state.
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other kvauth package.
//   - Log plaintext passwords.
package password
