// Package middleware adapts kvauth session authorization to net/http.
//
// [Guard] reads the session token from the request, resolves it through
// Engine.Authorize and hands the resulting identity to an [IdentityHandler]
// as an explicit argument. Handlers never look the identity up themselves.
//
// # Token sources
//
//   - Authorization: Bearer <token>
//   - Session-Id: <token>
//
// # What this package must NOT do
//
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Authorize.
package middleware
