// Package kvauth provides account registration, password login and opaque
// session tokens on top of a plain key-value store (Redis).
//
// The store offers only single-key reads and writes plus MULTI/EXEC batches,
// so every relation (username to user id, session to user id) is kept by
// hand: each multi-key mutation is one batch, and conditional writes are
// guarded with WATCH and a bounded retry loop.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// kvauth is the public surface. It exposes [Engine], [Builder], [Config], the
// failure sentinels and value types ([Account], [Identity], [AccountPatch]).
// Key layout lives in internal/keys, Redis persistence in internal/stores and
// session, password hashing in password.
//
// # Protected operations
//
// Operations that act on behalf of a user take an [Identity] argument. The
// only way to obtain one from a token is [Engine.Authorize]; [Protected] and
// the *ByToken helpers combine both steps.
//
// # What this package must NOT do
//
//   - Return password hashes from any read.
//   - Log passwords or session tokens.
//   - Expose Redis clients or key strings in its public API.
package kvauth
