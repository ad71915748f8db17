// Package internal contains helper utilities that are intentionally private to kvauth:
// session token and user id generation.
//
// # Sub-packages
//
//   - keys: the storage key layout (the only place that formats keys)
//   - stores: Redis-backed account persistence with atomic multi-key batches
//   - httpapi: chi-based HTTP adapter used by cmd/kvauth-server
//   - logger: zerolog wrapper for binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public kvauth API.
//   - Be imported by any package outside the kvauth module.
package internal
