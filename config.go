package kvauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/MrEthical07/kvauth/internal/stores"
	"github.com/MrEthical07/kvauth/password"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable read by [LoadConfigFromEnv].
const EnvPrefix = "KVAUTH_"

// Config is the full engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Keys     KeysConfig     `envPrefix:"KEYS_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Password PasswordConfig `envPrefix:"PASSWORD_"`
	Account  AccountConfig  `envPrefix:"ACCOUNT_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`
}

/*
====================================
KEYS CONFIG
====================================
*/

// KeysConfig controls the storage key namespace.
type KeysConfig struct {
	Prefix string `env:"PREFIX"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session token lifetime.
type SessionConfig struct {
	// TTL is applied to both session pointers at login.
	TTL time.Duration `env:"TTL"`
	// Sliding renews TTL on every successful authorization.
	Sliding bool `env:"SLIDING"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters.
type PasswordConfig struct {
	Memory           uint32 `env:"MEMORY"` // in KB
	Time             uint32 `env:"TIME"`
	Parallelism      uint8  `env:"PARALLELISM"`
	SaltLength       uint32 `env:"SALT_LENGTH"`
	KeyLength        uint32 `env:"KEY_LENGTH"`
	MaxPasswordBytes int    `env:"MAX_BYTES"`
	UpgradeOnLogin   bool   `env:"UPGRADE_ON_LOGIN"`
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig holds account field policy and transaction limits.
type AccountConfig struct {
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH"`
	MaxUsernameLength int `env:"MAX_USERNAME_LENGTH"`
	// MaxTxRetries bounds optimistic WATCH retries before a write reports
	// ErrStorageFailure.
	MaxTxRetries int `env:"MAX_TX_RETRIES"`
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration that passes [Config.Validate].
func DefaultConfig() Config {
	pw := password.DefaultConfig()

	return Config{
		Keys: KeysConfig{
			Prefix: keys.DefaultPrefix,
		},
		Session: SessionConfig{
			TTL:     24 * time.Hour,
			Sliding: false,
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
			UpgradeOnLogin:   true,
		},
		Account: AccountConfig{
			MinPasswordLength: 1,
			MaxUsernameLength: 64,
			MaxTxRetries:      stores.DefaultMaxTxRetries,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// LoadConfigFromEnv starts from [DefaultConfig] and overrides any field whose
// KVAUTH_ variable is set, e.g. KVAUTH_SESSION_TTL=2h or
// KVAUTH_PASSWORD_MEMORY=65536. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("error getting env configs: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	return cfg
}

func (c PasswordConfig) hasherConfig() password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MaxPasswordBytes: c.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration value that is out of range.
func (c *Config) Validate() error {
	// Keys
	if c.Keys.Prefix == "" {
		return errors.New("Keys Prefix must not be empty")
	}

	// Session
	if c.Session.TTL < time.Millisecond {
		return errors.New("Session TTL must be >= 1ms")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Account
	if c.Account.MinPasswordLength < 1 {
		return errors.New("Account MinPasswordLength must be >= 1")
	}
	if c.Password.MaxPasswordBytes > 0 && c.Account.MinPasswordLength > c.Password.MaxPasswordBytes {
		return errors.New("Account MinPasswordLength must be <= Password MaxPasswordBytes")
	}
	if c.Account.MaxUsernameLength < 1 {
		return errors.New("Account MaxUsernameLength must be >= 1")
	}
	if c.Account.MaxTxRetries < 1 {
		return errors.New("Account MaxTxRetries must be >= 1")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
