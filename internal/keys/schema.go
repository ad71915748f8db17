// Package keys is the single owner of the storage key layout.
//
// Every key is built from three parts joined by ':': an entity namespace
// ("uid", "u" or "sid"), the entity identifier, and a role suffix naming what
// the key holds. Namespaces and suffixes are disjoint per role, so the key that
// holds a user's username never collides with the key that holds the user id
// indexed by that username.
//
// # What this package must NOT do
//
//   - Perform I/O. It only computes strings.
//   - Be bypassed: stores must never format keys themselves.
package keys

import "strings"

// DefaultPrefix namespaces all keys when no prefix is configured.
const DefaultPrefix = "kva"

const (
	nsUser     = "uid"
	nsUsername = "u"
	nsSession  = "sid"

	roleUsername = "u"
	roleEmail    = "e"
	rolePassword = "p"
	roleSession  = "sid"
	roleUserID   = "uid"

	sep = ":"
)

var escaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Schema computes storage keys under a fixed prefix.
type Schema struct {
	prefix string
}

// New returns a Schema rooted at prefix, or at DefaultPrefix when prefix is empty.
func New(prefix string) Schema {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Schema{prefix: prefix}
}

// Prefix returns the namespace prefix shared by every key.
func (s Schema) Prefix() string {
	if s.prefix == "" {
		return DefaultPrefix
	}
	return s.prefix
}

func (s Schema) build(ns, id, role string) string {
	var b strings.Builder
	prefix := s.Prefix()
	b.Grow(len(prefix) + len(ns) + len(id) + len(role) + 3)
	b.WriteString(prefix)
	b.WriteString(sep)
	b.WriteString(ns)
	b.WriteString(sep)
	b.WriteString(escaper.Replace(id))
	b.WriteString(sep)
	b.WriteString(role)
	return b.String()
}

// Username is the key holding the username of userID.
func (s Schema) Username(userID string) string {
	return s.build(nsUser, userID, roleUsername)
}

// Email is the key holding the email of userID.
func (s Schema) Email(userID string) string {
	return s.build(nsUser, userID, roleEmail)
}

// PasswordHash is the key holding the encoded password hash of userID.
func (s Schema) PasswordHash(userID string) string {
	return s.build(nsUser, userID, rolePassword)
}

// SessionOf is the forward session pointer: user id to current session id.
func (s Schema) SessionOf(userID string) string {
	return s.build(nsUser, userID, roleSession)
}

// UserIDByUsername is the secondary index: username to user id.
func (s Schema) UserIDByUsername(username string) string {
	return s.build(nsUsername, username, roleUserID)
}

// UserIDBySession is the reverse session pointer: session id to user id.
func (s Schema) UserIDBySession(sessionID string) string {
	return s.build(nsSession, sessionID, roleUserID)
}

// UserAttributes returns the primary attribute keys of userID in a stable
// order: username, email, password hash.
func (s Schema) UserAttributes(userID string) []string {
	return []string{
		s.Username(userID),
		s.Email(userID),
		s.PasswordHash(userID),
	}
}
