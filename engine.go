package kvauth

import (
	"context"
	"time"

	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/MrEthical07/kvauth/internal/stores"
	"github.com/MrEthical07/kvauth/password"
	"github.com/MrEthical07/kvauth/session"
	"github.com/rs/zerolog"
)

// Engine ties the account store, session store and credential hasher
// together. It holds no mutable state besides metric counters and is safe for
// concurrent use once returned by [Builder.Build].
type Engine struct {
	config       Config
	keys         keys.Schema
	accounts     *stores.AccountStore
	sessionStore *session.Store
	passwordHash *password.Argon2
	decoyHash    string
	metrics      *Metrics
	logger       zerolog.Logger
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks that the backing store answers and returns the round trip time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	d, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return d, mapStoreErr(err)
	}
	return d, nil
}

func (e *Engine) ready() bool {
	return e != nil && e.accounts != nil && e.sessionStore != nil && e.passwordHash != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
