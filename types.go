package kvauth

import (
	"sort"
	"strings"
	"time"
)

// Account is the public view of a user. It never carries the password hash.
type Account struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Identity is the authenticated principal resolved from a session token.
// Protected operations receive it explicitly instead of reading ambient state.
type Identity struct {
	UserID    string
	SessionID string
}

// RegisterRequest carries the already-parsed fields of a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by [Engine.LoginWithResult].
type LoginResult struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// AccountPatch lists account attributes to change. Nil fields are left
// untouched; Password is plaintext and is re-hashed before it is stored.
type AccountPatch struct {
	Username *string
	Email    *string
	Password *string
}

// Empty reports whether p changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil
}

// Patch field names accepted by [PatchFromFields].
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// PatchFromFields builds an [AccountPatch] from loosely typed request fields.
// Only username, email and password may appear; any other key, including
// user_id, is rejected with [ErrValidation].
func PatchFromFields(fields map[string]string) (AccountPatch, error) {
	var (
		patch   AccountPatch
		unknown []string
	)

	for name, value := range fields {
		v := value
		switch name {
		case FieldUsername:
			patch.Username = &v
		case FieldEmail:
			patch.Email = &v
		case FieldPassword:
			patch.Password = &v
		default:
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return AccountPatch{}, validationError("unsupported fields: %s", strings.Join(unknown, ", "))
	}

	return patch, nil
}
