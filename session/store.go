package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a store round trip fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when a token has no live reverse pointer.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionContention is returned when optimistic retries are exhausted.
var ErrSessionContention = errors.New("session transaction contention")

const maxTxRetries = 4

// Store is a Redis-backed session store holding forward and reverse session
// pointers with a shared TTL.
type Store struct {
	redis   redis.UniversalClient
	keys    keys.Schema
	ttl     time.Duration
	sliding bool
}

// NewStore creates a session [Store] backed by the given Redis client.
// ttl is applied to both pointers on Save; a zero ttl stores them without
// expiry. sliding renews the TTL on every successful Resolve.
func NewStore(redis redis.UniversalClient, schema keys.Schema, ttl time.Duration, sliding bool) *Store {
	return &Store{
		redis:   redis,
		keys:    schema,
		ttl:     ttl,
		sliding: sliding && ttl > 0,
	}
}

// TTL returns the lifetime applied to newly saved sessions.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save writes the forward and reverse pointers for sess in one MULTI/EXEC and
// revokes the session previously tracked for the same user. It returns the
// revoked session id, or "" when there was none.
//
//	Performance: WATCH + GET + MULTI/EXEC.
func (s *Store) Save(ctx context.Context, sess *Session) (string, error) {
	forwardKey := s.keys.SessionOf(sess.UserID)
	var previous string

	err := s.watch(ctx, func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, forwardKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		previous = prev

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, forwardKey, sess.ID, s.ttl)
			pipe.Set(ctx, s.keys.UserIDBySession(sess.ID), sess.UserID, s.ttl)
			if prev != "" && prev != sess.ID {
				pipe.Del(ctx, s.keys.UserIDBySession(prev))
			}
			return nil
		})
		return err
	}, forwardKey)
	if err != nil {
		return "", s.mapErr(err)
	}

	if previous == sess.ID {
		return "", nil
	}
	return previous, nil
}

// Resolve returns the session for sessionID via its reverse pointer.
// Missing or expired pointers yield [ErrSessionNotFound].
//
//	Performance: 1 pipelined GET + PTTL; +1 pipeline when sliding.
func (s *Store) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	reverseKey := s.keys.UserIDBySession(sessionID)

	var (
		getCmd  *redis.StringCmd
		pttlCmd *redis.DurationCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, reverseKey)
		pttlCmd = pipe.PTTL(ctx, reverseKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	userID, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess := &Session{ID: sessionID, UserID: userID}
	if remaining := pttlCmd.Val(); remaining > 0 {
		sess.ExpiresAt = time.Now().Add(remaining)
	}

	if s.sliding {
		if err := s.renew(ctx, sess); err != nil {
			return sess, err
		}
	}

	return sess, nil
}

// renew pushes both pointers' expiry forward. The forward pointer is only
// renewed while it still names this session.
func (s *Store) renew(ctx context.Context, sess *Session) error {
	forwardKey := s.keys.SessionOf(sess.UserID)

	current, err := s.redis.Get(ctx, forwardKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, s.keys.UserIDBySession(sess.ID), s.ttl)
		if current == sess.ID {
			pipe.Expire(ctx, forwardKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess.ExpiresAt = time.Now().Add(s.ttl)
	return nil
}

// Current returns the session id the forward pointer of userID names.
func (s *Store) Current(ctx context.Context, userID string) (string, bool, error) {
	sid, err := s.redis.Get(ctx, s.keys.SessionOf(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return sid, true, nil
}

// Delete removes the reverse pointer of sessionID and, while it still names
// sessionID, the forward pointer of userID, in one MULTI/EXEC. A stale token
// therefore never revokes the user's newer session. Deleting an absent session
// is not an error; the result reports whether the reverse pointer existed.
func (s *Store) Delete(ctx context.Context, userID, sessionID string) (bool, error) {
	forwardKey := s.keys.SessionOf(userID)
	reverseKey := s.keys.UserIDBySession(sessionID)
	var removed int64

	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, forwardKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		var delCmd *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			delCmd = pipe.Del(ctx, reverseKey)
			if current == sessionID {
				pipe.Del(ctx, forwardKey)
			}
			return nil
		})
		if err != nil {
			return err
		}
		removed = delCmd.Val()
		return nil
	}, forwardKey)
	if err != nil {
		return false, s.mapErr(err)
	}

	return removed > 0, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, watched ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, fn, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrSessionContention
}

func (s *Store) mapErr(err error) error {
	if errors.Is(err, ErrSessionContention) {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
