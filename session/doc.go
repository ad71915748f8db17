// Package session provides Redis-backed session persistence.
//
// # Layout
//
// A session is two plain string keys carrying the same TTL: the forward
// pointer (user id to session id) and the reverse pointer (session id to user
// id). Authorization resolves a token through the reverse pointer only. At most
// one session is tracked per user: saving a new one replaces the forward
// pointer and deletes the previous session's reverse pointer in the same
// MULTI/EXEC, so the older token stops authorizing immediately.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It
// does NOT verify credentials or generate tokens. Those responsibilities
// belong to the Engine.
//
// # What this package must NOT do
//
//   - Import kvauth (no upward imports).
//   - Format storage keys itself instead of asking internal/keys.
//   - Log session tokens.
package session
