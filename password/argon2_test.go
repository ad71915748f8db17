package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(cfg)
	require.NoError(t, err)
	return hasher
}

func TestHashAndVerify(t *testing.T) {
	hasher := newTestHasher(t, testConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), "unexpected PHC prefix: %s", hash)

	ok, err := hasher.Verify(hash, "P@ssw0rd-Ascii")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	hasher := newTestHasher(t, testConfig())
	const pw = "oscail an doras"

	first, err := hasher.Hash(pw)
	require.NoError(t, err)
	second, err := hasher.Hash(pw)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, h := range []string{first, second} {
		ok, err := hasher.Verify(h, pw)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestVerifyUnicodePassword(t *testing.T) {
	hasher := newTestHasher(t, testConfig())
	const pw = "some pasṡwórḊ"

	hash, err := hasher.Hash(pw)
	require.NoError(t, err)

	ok, err := hasher.Verify(hash, pw)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher := newTestHasher(t, testConfig())

	hash, err := hasher.Hash("correct-password")
	require.NoError(t, err)

	ok, err := hasher.Verify(hash, "wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAcrossConfigs(t *testing.T) {
	old := newTestHasher(t, testConfig())
	hash, err := old.Hash("rotated")
	require.NoError(t, err)

	current := newTestHasher(t, DefaultConfig())
	ok, err := current.Verify(hash, "rotated")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher := newTestHasher(t, testConfig())

	hash, err := oldHasher.Hash("test-password")
	require.NoError(t, err)

	newHasher := newTestHasher(t, Config{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})

	needsUpgrade, err := newHasher.NeedsUpgrade(hash)
	require.NoError(t, err)
	assert.True(t, needsUpgrade)

	same, err := oldHasher.NeedsUpgrade(hash)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newTestHasher(t, testConfig())

	valid, err := hasher.Hash("version-test")
	require.NoError(t, err)

	cases := map[string]string{
		"not phc":       "not-a-phc-hash",
		"empty":         "",
		"wrong algo":    strings.Replace(valid, "$argon2id$", "$argon2i$", 1),
		"wrong version": strings.Replace(valid, "$v=19$", "$v=18$", 1),
		"bad params":    strings.Replace(valid, "m=8192,t=1,p=1", "m=8192,t=1", 1),
		"weak memory":   strings.Replace(valid, "m=8192", "m=1", 1),
		"bad salt":      "$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
		"short salt":    "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
	}

	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := hasher.Verify(encoded, "version-test")
			assert.False(t, ok)
			assert.True(t, errors.Is(err, ErrMalformedHash), "got %v", err)
		})
	}
}

func TestVerifyAcceptsPaddedSegments(t *testing.T) {
	hasher := newTestHasher(t, testConfig())

	hash, err := hasher.Hash("padded")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	for _, i := range []int{4, 5} {
		for len(parts[i])%4 != 0 {
			parts[i] += "="
		}
	}

	ok, err := hasher.Verify(strings.Join(parts, "$"), "padded")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashTooLongPasswordRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newTestHasher(t, cfg)

	_, err := hasher.Hash(strings.Repeat("a", 65))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	require.NoError(t, err)

	ok, err := hasher.Verify(hash, exact)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify(hash, strings.Repeat("c", 65))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultMaxPasswordBytesApplied(t *testing.T) {
	hasher := newTestHasher(t, testConfig())

	_, err := hasher.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = hasher.Hash(strings.Repeat("e", DefaultMaxPasswordBytes))
	assert.NoError(t, err)
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.Memory = 1024 },
		func(c *Config) { c.Time = 0 },
		func(c *Config) { c.Parallelism = 0 },
		func(c *Config) { c.SaltLength = 8 },
		func(c *Config) { c.KeyLength = 8 },
		func(c *Config) { c.MaxPasswordBytes = -1 },
	}

	for _, mutate := range mutations {
		cfg := testConfig()
		mutate(&cfg)
		_, err := NewArgon2(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}
