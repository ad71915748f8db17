package kvauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStoresHashedAttributes(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()

	id := mustRegister(t, engine, "alice", "a@x.com", "pw")
	assert.Len(t, id, 32)

	mr.CheckGet(t, "t:uid:"+id+":u", "alice")
	mr.CheckGet(t, "t:uid:"+id+":e", "a@x.com")
	mr.CheckGet(t, "t:u:alice:uid", id)

	stored, err := mr.Get("t:uid:" + id + ":p")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored)
	assert.True(t, strings.HasPrefix(stored, "$argon2id$"))

	ok, err := engine.passwordHash.Verify(stored, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	found, ok, err := engine.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	name, ok, err := engine.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	assert.Equal(t, uint64(1), engine.metrics.Value(MetricRegisterSuccess))
}

func TestRegisterSamePasswordDifferentHashes(t *testing.T) {
	engine, mr := newTestEngine(t)

	a := mustRegister(t, engine, "a1", "a1@x.com", "same")
	b := mustRegister(t, engine, "a2", "a2@x.com", "same")

	ha, err := mr.Get("t:uid:" + a + ":p")
	require.NoError(t, err)
	hb, err := mr.Get("t:uid:" + b + ":p")
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()

	first := mustRegister(t, engine, "alice", "a@x.com", "pw")

	_, err := engine.Register(ctx, RegisterRequest{Username: "alice", Email: "other@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	mr.CheckGet(t, "t:u:alice:uid", first)
	mr.CheckGet(t, "t:uid:"+first+":e", "a@x.com")
	assert.Equal(t, uint64(1), engine.metrics.Value(MetricRegisterDuplicate))
}

func TestRegisterConcurrentSameUsername(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  []string
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := engine.Register(ctx, RegisterRequest{
				Username: "racer",
				Email:    fmt.Sprintf("r%d@x.com", i),
				Password: "pw",
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids = append(ids, id)
		}(i)
	}
	wg.Wait()

	require.Len(t, ids, 1)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrDuplicateAccount)
	}

	owner, ok, err := engine.FindByUsername(ctx, "racer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids[0], owner)
}

func TestRegisterValidation(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()

	cases := map[string]RegisterRequest{
		"empty username":      {Username: "", Email: "a@x.com", Password: "pw"},
		"space in username":   {Username: "al ice", Email: "a@x.com", Password: "pw"},
		"control in username": {Username: "al\x00ice", Email: "a@x.com", Password: "pw"},
		"long username":       {Username: strings.Repeat("a", 65), Email: "a@x.com", Password: "pw"},
		"empty email":         {Username: "alice", Email: "", Password: "pw"},
		"bad email":           {Username: "alice", Email: "not-an-email", Password: "pw"},
		"named email":         {Username: "alice", Email: "Alice <a@x.com>", Password: "pw"},
		"empty password":      {Username: "alice", Email: "a@x.com", Password: ""},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Register(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Empty(t, mr.Keys())
}

func TestRegisterMinPasswordLength(t *testing.T) {
	cfg := testConfig()
	cfg.Account.MinPasswordLength = 8
	engine, _ := newTestEngineWithConfig(t, cfg)

	_, err := engine.Register(context.Background(), RegisterRequest{Username: "alice", Email: "a@x.com", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	mustRegister(t, engine, "alice", "a@x.com", "long-enough")
}

func TestRegisterUsernameWithSeparator(t *testing.T) {
	engine, mr := newTestEngine(t)

	id := mustRegister(t, engine, "a:b", "a@x.com", "pw")
	mr.CheckGet(t, "t:u:a%3Ab:uid", id)

	found, ok, err := engine.FindByUsername(context.Background(), "a:b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)
}

func TestRegisterStorageFailureLeavesNothing(t *testing.T) {
	engine, mr := newTestEngine(t)

	mr.SetError("injected failure")
	_, err := engine.Register(context.Background(), RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrStorageFailure)

	mr.SetError("")
	assert.Empty(t, mr.Keys())
	assert.Equal(t, uint64(1), engine.metrics.Value(MetricRegisterFailure))
}

func TestFindUnknown(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, ok, err := engine.FindByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = engine.FindByID(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetAccountNeverReturnsHash(t *testing.T) {
	engine, _ := newTestEngine(t)
	id := mustRegister(t, engine, "alice", "a@x.com", "pw")

	acc, err := engine.GetAccount(context.Background(), Identity{UserID: id})
	require.NoError(t, err)
	assert.Equal(t, Account{UserID: id, Username: "alice", Email: "a@x.com"}, acc)
}

func TestUpdateAccountRename(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()
	id := mustRegister(t, engine, "alice", "a@x.com", "pw")

	acc, err := engine.UpdateAccount(ctx, Identity{UserID: id}, AccountPatch{Username: strPtr("alice2")})
	require.NoError(t, err)
	assert.Equal(t, "alice2", acc.Username)

	_, ok, err := engine.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("t:u:alice:uid"))

	found, ok, err := engine.FindByUsername(ctx, "alice2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	name, _, err := engine.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice2", name)
}

func TestUpdateAccountRenameToTaken(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	alice := mustRegister(t, engine, "alice", "a@x.com", "pw")
	mustRegister(t, engine, "bob", "b@x.com", "pw")

	_, err := engine.UpdateAccount(ctx, Identity{UserID: alice}, AccountPatch{Username: strPtr("bob")})
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	name, _, err := engine.FindByID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
}

func TestUpdateAccountPasswordRehashes(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()
	id := mustRegister(t, engine, "alice", "a@x.com", "old")

	_, err := engine.UpdateAccount(ctx, Identity{UserID: id}, AccountPatch{Password: strPtr("new")})
	require.NoError(t, err)

	stored, err := mr.Get("t:uid:" + id + ":p")
	require.NoError(t, err)
	assert.NotEqual(t, "new", stored)

	_, err = engine.Login(ctx, id, "old")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	mustLogin(t, engine, id, "new")
}

func TestUpdateAccountValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustRegister(t, engine, "alice", "a@x.com", "pw")

	_, err := engine.UpdateAccount(ctx, Identity{UserID: id}, AccountPatch{Email: strPtr("nope")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = engine.UpdateAccount(ctx, Identity{UserID: id}, AccountPatch{Username: strPtr("")})
	assert.ErrorIs(t, err, ErrValidation)

	acc, err := engine.GetAccount(ctx, Identity{UserID: id})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acc.Email)
}

func TestUpdateAccountEmptyPatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	id := mustRegister(t, engine, "alice", "a@x.com", "pw")

	acc, err := engine.UpdateAccount(context.Background(), Identity{UserID: id}, AccountPatch{})
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, uint64(0), engine.metrics.Value(MetricAccountUpdated))
}

func TestPatchFromFields(t *testing.T) {
	patch, err := PatchFromFields(map[string]string{"username": "n", "email": "e@x.com", "password": "p"})
	require.NoError(t, err)
	require.NotNil(t, patch.Username)
	require.NotNil(t, patch.Email)
	require.NotNil(t, patch.Password)
	assert.Equal(t, "n", *patch.Username)
	assert.Equal(t, "e@x.com", *patch.Email)
	assert.Equal(t, "p", *patch.Password)

	_, err = PatchFromFields(map[string]string{"user_id": "x", "email": "e@x.com"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "user_id")

	patch, err = PatchFromFields(nil)
	require.NoError(t, err)
	assert.True(t, patch.Empty())
}

func TestDeleteAccountCascade(t *testing.T) {
	engine, mr := newTestEngine(t)
	ctx := context.Background()
	alice := mustRegister(t, engine, "alice", "a@x.com", "pw")
	bob := mustRegister(t, engine, "bob", "b@x.com", "pw")
	token := mustLogin(t, engine, alice, "pw")
	mustLogin(t, engine, bob, "pw")

	id, err := engine.Authorize(ctx, token)
	require.NoError(t, err)
	require.NoError(t, engine.DeleteAccount(ctx, id))

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, alice)
		assert.NotContains(t, key, ":"+token+":")
	}
	assert.False(t, mr.Exists("t:u:alice:uid"))

	_, err = engine.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, ok, err := engine.FindByID(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other users are untouched.
	name, ok, err := engine.FindByID(ctx, bob)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", name)

	assert.NoError(t, engine.DeleteAccount(ctx, id))
	assert.Equal(t, uint64(1), engine.metrics.Value(MetricAccountDeleted))
}

func TestProtectedOperationsRequireIdentity(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.GetAccount(ctx, Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = engine.UpdateAccount(ctx, Identity{}, AccountPatch{Email: strPtr("e@x.com")})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, engine.DeleteAccount(ctx, Identity{}), ErrUnauthenticated)
	assert.ErrorIs(t, engine.Logout(ctx, Identity{}), ErrUnauthenticated)
}

func TestEngineNotReady(t *testing.T) {
	var engine *Engine
	ctx := context.Background()

	_, err := engine.Register(ctx, RegisterRequest{})
	assert.True(t, errors.Is(err, ErrEngineNotReady))
	_, err = engine.Authorize(ctx, "tok")
	assert.True(t, errors.Is(err, ErrEngineNotReady))
	_, err = (&Engine{}).Login(ctx, "u", "p")
	assert.True(t, errors.Is(err, ErrEngineNotReady))
}
