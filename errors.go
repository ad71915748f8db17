package kvauth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/kvauth/internal/stores"
	"github.com/MrEthical07/kvauth/password"
	"github.com/MrEthical07/kvauth/session"
)

var (
	// ErrValidation is returned when a field fails validation before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateAccount is returned when a username is already held by another user.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrAccountNotFound is returned when no user matches the given id or username.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredential is returned when the password does not match the stored hash.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUnauthenticated is returned when a session token is empty, unknown, expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCorruptCredential is returned when a stored password hash cannot be parsed.
	ErrCorruptCredential = errors.New("stored credential is corrupt")
	// ErrStorageFailure is returned when the key-value store fails or a batch does not commit.
	ErrStorageFailure = errors.New("storage failure")
	// ErrEngineNotReady is returned when an Engine was not built through [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PublicMessage returns a client-safe description of err. Unknown accounts and
// wrong passwords share one message so callers cannot probe for usernames.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInvalidCredential):
		return "invalid credentials"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrDuplicateAccount):
		return "username already taken"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal error"
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// mapStoreErr translates package-level store and hasher errors into the
// engine's failure kinds.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrUsernameTaken):
		return ErrDuplicateAccount
	case errors.Is(err, stores.ErrAccountMissing):
		return ErrAccountNotFound
	case errors.Is(err, session.ErrSessionNotFound):
		return ErrUnauthenticated
	case errors.Is(err, password.ErrMalformedHash):
		return fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	case errors.Is(err, stores.ErrStoreUnavailable), errors.Is(err, session.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
}
