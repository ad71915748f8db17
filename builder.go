package kvauth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/MrEthical07/kvauth/internal/stores"
	"github.com/MrEthical07/kvauth/password"
	"github.com/MrEthical07/kvauth/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// decoyPassword is hashed once per engine so logins for unknown accounts pay
// the same argon2 cost as real ones.
const decoyPassword = "kvauth-decoy-credential"

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the key-value store client. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the engine logger. Without it the engine logs nothing.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithMetricsEnabled toggles engine counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the stores and hasher. It
// performs no I/O besides computing the decoy hash.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ph, err := password.NewArgon2(cfg.Password.hasherConfig())
	if err != nil {
		return nil, err
	}

	decoy, err := ph.Hash(decoyPassword)
	if err != nil {
		return nil, fmt.Errorf("decoy hash: %w", err)
	}

	schema := keys.New(cfg.Keys.Prefix)

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:       cfg,
		keys:         schema,
		accounts:     stores.NewAccountStore(b.redis, schema, cfg.Account.MaxTxRetries),
		sessionStore: session.NewStore(b.redis, schema, cfg.Session.TTL, cfg.Session.Sliding),
		passwordHash: ph,
		decoyHash:    decoy,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger.With().Str("component", "kvauth").Logger(),
	}

	b.built = true

	return engine, nil
}
