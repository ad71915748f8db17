package kvauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/kvauth/session"
)

// Authorize resolves token to the identity that owns it through the reverse
// session pointer. Empty, unknown, expired and revoked tokens fail with
// [ErrUnauthenticated]; a store outage fails with [ErrStorageFailure].
//
// With Session.Sliding enabled a successful call renews both session
// pointers. A failed renewal is logged and does not reject the token.
//
//	Performance: 1 pipelined GET + PTTL; +1 GET and MULTI/EXEC when sliding.
func (e *Engine) Authorize(ctx context.Context, token string) (Identity, error) {
	if !e.ready() {
		return Identity{}, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()
	}

	if token == "" {
		e.metricInc(MetricAuthorizeFailure)
		return Identity{}, ErrUnauthenticated
	}

	sess, err := e.sessionStore.Resolve(ctx, token)
	if err != nil {
		if sess != nil && errors.Is(err, session.ErrRedisUnavailable) {
			e.logger.Warn().Str("user_id", sess.UserID).Err(err).Msg("session renewal failed")
			return Identity{UserID: sess.UserID, SessionID: sess.ID}, nil
		}
		e.metricInc(MetricAuthorizeFailure)
		return Identity{}, mapStoreErr(err)
	}

	return Identity{UserID: sess.UserID, SessionID: sess.ID}, nil
}

// Protected authorizes token and, on success, calls op with the resolved
// identity. op never runs for an unauthenticated caller.
func Protected[T any](ctx context.Context, e *Engine, token string, op func(context.Context, Identity) (T, error)) (T, error) {
	var zero T

	id, err := e.Authorize(ctx, token)
	if err != nil {
		return zero, err
	}
	return op(ctx, id)
}

// GetAccountByToken is [Engine.GetAccount] behind [Protected].
func (e *Engine) GetAccountByToken(ctx context.Context, token string) (Account, error) {
	return Protected(ctx, e, token, e.GetAccount)
}

// UpdateAccountByToken is [Engine.UpdateAccount] behind [Protected].
func (e *Engine) UpdateAccountByToken(ctx context.Context, token string, patch AccountPatch) (Account, error) {
	return Protected(ctx, e, token, func(ctx context.Context, id Identity) (Account, error) {
		return e.UpdateAccount(ctx, id, patch)
	})
}

// LogoutByToken is [Engine.Logout] behind [Protected].
func (e *Engine) LogoutByToken(ctx context.Context, token string) error {
	_, err := Protected(ctx, e, token, func(ctx context.Context, id Identity) (struct{}, error) {
		return struct{}{}, e.Logout(ctx, id)
	})
	return err
}

// DeleteAccountByToken is [Engine.DeleteAccount] behind [Protected].
func (e *Engine) DeleteAccountByToken(ctx context.Context, token string) error {
	_, err := Protected(ctx, e, token, func(ctx context.Context, id Identity) (struct{}, error) {
		return struct{}{}, e.DeleteAccount(ctx, id)
	})
	return err
}
