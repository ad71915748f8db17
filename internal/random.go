package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const sessionTokenSize = 32

// ErrMalformedToken is returned by ParseSessionToken for strings that could
// not have been produced by NewSessionToken.
var ErrMalformedToken = errors.New("malformed session token")

// SessionToken is the raw entropy behind an opaque session identifier.
type SessionToken [sessionTokenSize]byte

func NewSessionToken() (SessionToken, error) {
	var tok SessionToken
	if _, err := rand.Read(tok[:]); err != nil {
		return tok, fmt.Errorf("session token entropy: %w", err)
	}
	return tok, nil
}

func (t SessionToken) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(t[:])
}

func ParseSessionToken(s string) (SessionToken, error) {
	var tok SessionToken

	if base64.RawURLEncoding.DecodedLen(len(s)) != len(tok) {
		return tok, ErrMalformedToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != len(tok) {
		return tok, ErrMalformedToken
	}

	copy(tok[:], raw)
	return tok, nil
}

// NewUserID returns a random (version 4) UUID rendered as 32 lowercase hex digits.
func NewUserID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("user id entropy: %w", err)
	}
	return hex.EncodeToString(id[:]), nil
}
