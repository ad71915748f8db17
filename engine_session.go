package kvauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/kvauth/internal"
	"github.com/MrEthical07/kvauth/internal/stores"
	"github.com/MrEthical07/kvauth/password"
	"github.com/MrEthical07/kvauth/session"
)

// Login verifies password for userID and issues a new session token. Any
// session the user held before is revoked in the same batch.
//
// Errors: [ErrAccountNotFound], [ErrInvalidCredential], [ErrCorruptCredential],
// [ErrStorageFailure]. Use [PublicMessage] before showing them to a client.
func (e *Engine) Login(ctx context.Context, userID, pw string) (string, error) {
	result, err := e.LoginWithResult(ctx, userID, pw)
	if err != nil {
		return "", err
	}
	return result.SessionID, nil
}

// LoginByUsername resolves username through the index and then behaves like
// [Engine.Login]. An index entry that no longer matches its owner's username
// is treated as absent.
func (e *Engine) LoginByUsername(ctx context.Context, username, pw string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	userID, ok, err := e.accounts.UserIDByUsername(ctx, username)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return "", mapStoreErr(err)
	}
	if ok {
		current, found, err := e.accounts.UsernameByID(ctx, userID)
		if err != nil {
			e.metricInc(MetricLoginFailure)
			return "", mapStoreErr(err)
		}
		ok = found && current == username
	}
	if !ok {
		e.burnDecoy(pw)
		e.metricInc(MetricLoginFailure)
		return "", ErrAccountNotFound
	}

	return e.Login(ctx, userID, pw)
}

// LoginWithResult is [Engine.Login] returning the session expiry as well.
//
//	Performance: 1 GET, 1 argon2 verify, WATCH + GET + MULTI/EXEC.
func (e *Engine) LoginWithResult(ctx context.Context, userID, pw string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	hash, ok, err := e.accounts.PasswordHash(ctx, userID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, mapStoreErr(err)
	}
	if !ok || userID == "" {
		e.burnDecoy(pw)
		e.metricInc(MetricLoginFailure)
		return nil, ErrAccountNotFound
	}

	match, err := e.passwordHash.Verify(hash, pw)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(err, password.ErrMalformedHash) {
			e.logger.Error().Str("user_id", userID).Err(err).Msg("stored password hash is corrupt")
		}
		return nil, mapStoreErr(err)
	}
	if !match {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredential
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, userID, hash, pw)
	}

	token, err := internal.NewSessionToken()
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	sess := &session.Session{
		ID:        token.String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(e.sessionStore.TTL()),
	}
	previous, err := e.sessionStore.Save(ctx, sess)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.logger.Error().Str("user_id", userID).Err(err).Msg("login: session write failed")
		return nil, mapStoreErr(err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	if previous != "" {
		e.metricInc(MetricSessionRevoked)
	}
	e.logger.Debug().Str("user_id", userID).Bool("revoked_previous", previous != "").Msg("session created")

	return &LoginResult{
		UserID:    userID,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Logout revokes the caller's session. The user's forward pointer is only
// removed while it still names this session, so a stale token never ends a
// newer login. Logging out twice is not an error.
func (e *Engine) Logout(ctx context.Context, id Identity) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if id.UserID == "" || id.SessionID == "" {
		return ErrUnauthenticated
	}

	removed, err := e.sessionStore.Delete(ctx, id.UserID, id.SessionID)
	if err != nil {
		return mapStoreErr(err)
	}

	e.metricInc(MetricLogout)
	e.logger.Debug().Str("user_id", id.UserID).Bool("removed", removed).Msg("session logged out")
	return nil
}

// upgradeHash re-hashes pw with the current parameters when the stored hash
// was produced with weaker ones. Failures are logged and do not fail login.
func (e *Engine) upgradeHash(ctx context.Context, userID, stored, pw string) {
	needs, err := e.passwordHash.NeedsUpgrade(stored)
	if err != nil || !needs {
		return
	}

	fresh, err := e.passwordHash.Hash(pw)
	if err != nil {
		e.logger.Warn().Str("user_id", userID).Err(err).Msg("password rehash failed")
		return
	}
	if _, err := e.accounts.Update(ctx, userID, stores.AccountChange{PasswordHash: &fresh}); err != nil {
		e.logger.Warn().Str("user_id", userID).Err(err).Msg("password rehash write failed")
		return
	}
	e.metricInc(MetricPasswordRehashed)
}

// burnDecoy spends one verification on a fixed hash so unknown accounts are
// not distinguishable by response time.
func (e *Engine) burnDecoy(pw string) {
	_, _ = e.passwordHash.Verify(e.decoyHash, pw)
}
