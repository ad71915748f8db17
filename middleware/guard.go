package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/kvauth"
)

// SessionHeader is the alternative header carrying a bare session token.
const SessionHeader = "Session-Id"

// Authorizer resolves a session token. *kvauth.Engine satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (kvauth.Identity, error)
}

// IdentityHandler serves a request on behalf of an authenticated identity.
type IdentityHandler func(w http.ResponseWriter, r *http.Request, id kvauth.Identity)

// Guard returns an adapter that runs next only for requests with a valid
// session token. Missing or rejected tokens get 401; a store outage gets 503.
func Guard(auth Authorizer) func(IdentityHandler) http.Handler {
	return func(next IdentityHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := TokenFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := auth.Authorize(r.Context(), token)
			if err != nil {
				if errors.Is(err, kvauth.ErrStorageFailure) {
					http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r, id)
		})
	}
}

// TokenFromRequest extracts the session token, preferring the Authorization
// header over Session-Id.
func TokenFromRequest(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}

	token := strings.TrimSpace(r.Header.Get(SessionHeader))
	if token == "" {
		return "", false
	}
	return token, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
