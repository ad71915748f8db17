package kvauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeRejectsUnknownTokens(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		_, err := engine.Authorize(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", token)
	}
	assert.Equal(t, uint64(3), engine.metrics.Value(MetricAuthorizeFailure))

	snap := engine.MetricsSnapshot()
	var observed uint64
	for _, n := range snap.Histograms[MetricAuthorizeLatency] {
		observed += n
	}
	assert.Equal(t, uint64(3), observed)
}

func TestAuthorizeStorageFailure(t *testing.T) {
	engine, mr := newTestEngine(t)
	id := mustRegister(t, engine, "alice", "a@x.com", "pw")
	token := mustLogin(t, engine, id, "pw")

	mr.SetError("injected failure")
	_, err := engine.Authorize(context.Background(), token)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestProtectedSkipsOperationWhenUnauthenticated(t *testing.T) {
	engine, _ := newTestEngine(t)

	called := false
	_, err := Protected(context.Background(), engine, "bogus", func(context.Context, Identity) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, called)
}

func TestProtectedPassesIdentity(t *testing.T) {
	engine, _ := newTestEngine(t)
	id := mustRegister(t, engine, "alice", "a@x.com", "pw")
	token := mustLogin(t, engine, id, "pw")

	got, err := Protected(context.Background(), engine, token, func(_ context.Context, identity Identity) (Identity, error) {
		return identity, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: id, SessionID: token}, got)
}

func TestByTokenWrappersRejectBadToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.GetAccountByToken(ctx, "bad")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = engine.UpdateAccountByToken(ctx, "bad", AccountPatch{Email: strPtr("e@x.com")})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, engine.LogoutByToken(ctx, "bad"), ErrUnauthenticated)
	assert.ErrorIs(t, engine.DeleteAccountByToken(ctx, "bad"), ErrUnauthenticated)
}

func TestEndToEndBob(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	uid, err := engine.Register(ctx, RegisterRequest{Username: "bob", Email: "b@x.com", Password: "s3cret"})
	require.NoError(t, err)

	sid, err := engine.Login(ctx, uid, "s3cret")
	require.NoError(t, err)

	acc, err := engine.GetAccountByToken(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, Account{UserID: uid, Username: "bob", Email: "b@x.com"}, acc)

	patch, err := PatchFromFields(map[string]string{"email": "new@x.com"})
	require.NoError(t, err)
	acc, err = engine.UpdateAccountByToken(ctx, sid, patch)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", acc.Email)

	acc, err = engine.GetAccountByToken(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", acc.Email)

	require.NoError(t, engine.DeleteAccountByToken(ctx, sid))

	_, err = engine.GetAccountByToken(ctx, sid)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, ok, err := engine.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = engine.Login(ctx, uid, "s3cret")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPing(t *testing.T) {
	engine, mr := newTestEngine(t)

	_, err := engine.Ping(context.Background())
	require.NoError(t, err)

	mr.Close()
	_, err = engine.Ping(context.Background())
	assert.ErrorIs(t, err, ErrStorageFailure)
}
