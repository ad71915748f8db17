// Package stores provides the Redis-backed account store.
//
// # Design
//
// A user is stored as independent string keys (username, email, password
// hash) plus a secondary index from username to user id; the layout comes from
// internal/keys. Every multi-key mutation is submitted as one MULTI/EXEC.
// Mutations that depend on a prior read (uniqueness, rename, delete cascade)
// use WATCH optimistic transactions with bounded retry on contention, so a
// read-then-write pair can never commit against a value that changed in
// between.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for user records. It
// does NOT hash passwords, validate input, or make authentication decisions.
// Those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import kvauth or the session package.
//   - Format storage keys itself instead of asking internal/keys.
//   - Log or expose plaintext secrets.
package stores
