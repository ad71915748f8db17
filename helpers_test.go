package kvauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

// testConfig keeps argon2 at its minimum cost so tests stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Keys.Prefix = "t"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	return newTestEngineWithConfig(t, testConfig())
}

func newTestEngineWithConfig(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	require.NoError(t, err)
	return engine, mr
}

func mustRegister(t *testing.T, e *Engine, username, email, pw string) string {
	t.Helper()

	id, err := e.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    email,
		Password: pw,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func mustLogin(t *testing.T, e *Engine, userID, pw string) string {
	t.Helper()

	token, err := e.Login(context.Background(), userID, pw)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return token
}

func strPtr(s string) *string { return &s }
