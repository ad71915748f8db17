package session

import "time"

// Session is one issued session: the opaque token and the user it authenticates.
//
// Session values are snapshots; they are never written back.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}
