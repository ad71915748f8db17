package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/redis/go-redis/v9"
)

// DefaultMaxTxRetries bounds optimistic transaction retries under WATCH contention.
const DefaultMaxTxRetries = 4

var (
	ErrStoreUnavailable = errors.New("account store unavailable")
	ErrUsernameTaken    = errors.New("username taken")
	ErrAccountMissing   = errors.New("account missing")
	ErrTxContention     = errors.New("account transaction contention")
)

// AccountRecord is the persisted shape of a user. Attributes are stored under
// independent keys; the struct is only an in-memory grouping.
type AccountRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
}

// AccountChange lists attributes to overwrite. Nil fields are left untouched.
type AccountChange struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether the change touches no attribute.
func (c AccountChange) Empty() bool {
	return c.Username == nil && c.Email == nil && c.PasswordHash == nil
}

// AccountStore persists users in Redis as plain string keys and keeps the
// username index in agreement with the primary attributes.
type AccountStore struct {
	redis      redis.UniversalClient
	keys       keys.Schema
	maxRetries int
}

func NewAccountStore(redisClient redis.UniversalClient, schema keys.Schema, maxRetries int) *AccountStore {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxTxRetries
	}
	return &AccountStore{
		redis:      redisClient,
		keys:       schema,
		maxRetries: maxRetries,
	}
}

// Create writes the four keys of a new user in one MULTI/EXEC.
//
// The existence check on the username index and the write are tied together by
// WATCH on that key: a concurrent Create for the same username that commits
// first aborts this EXEC, the check re-runs and reports ErrUsernameTaken. An
// index entry whose owner no longer holds that username is dangling and is
// overwritten.
func (s *AccountStore) Create(ctx context.Context, rec AccountRecord) error {
	indexKey := s.keys.UserIDByUsername(rec.Username)

	err := s.watch(ctx, func(tx *redis.Tx) error {
		taken, err := s.usernameOwned(ctx, tx, rec.Username)
		if err != nil {
			return err
		}
		if taken != "" {
			return ErrUsernameTaken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.keys.Username(rec.UserID), rec.Username, 0)
			pipe.Set(ctx, indexKey, rec.UserID, 0)
			pipe.Set(ctx, s.keys.Email(rec.UserID), rec.Email, 0)
			pipe.Set(ctx, s.keys.PasswordHash(rec.UserID), rec.PasswordHash, 0)
			return nil
		})
		return err
	}, indexKey)

	return s.mapErr(err)
}

// usernameOwned returns the id of the user that currently holds username, or
// "" when the index entry is absent or dangling. The owner's username key is
// added to the watch set so a concurrent rename invalidates the decision.
func (s *AccountStore) usernameOwned(ctx context.Context, tx *redis.Tx, username string) (string, error) {
	owner, err := tx.Get(ctx, s.keys.UserIDByUsername(username)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	ownerKey := s.keys.Username(owner)
	if err := tx.Watch(ctx, ownerKey).Err(); err != nil {
		return "", err
	}
	current, err := tx.Get(ctx, ownerKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if current != username {
		return "", nil
	}

	return owner, nil
}

// UserIDByUsername reads the secondary index.
func (s *AccountStore) UserIDByUsername(ctx context.Context, username string) (string, bool, error) {
	return s.getString(ctx, s.keys.UserIDByUsername(username))
}

// UsernameByID reads the primary username attribute.
func (s *AccountStore) UsernameByID(ctx context.Context, userID string) (string, bool, error) {
	return s.getString(ctx, s.keys.Username(userID))
}

// PasswordHash reads the stored password hash of userID.
func (s *AccountStore) PasswordHash(ctx context.Context, userID string) (string, bool, error) {
	return s.getString(ctx, s.keys.PasswordHash(userID))
}

// Get returns username and email of userID. PasswordHash is left empty.
func (s *AccountStore) Get(ctx context.Context, userID string) (*AccountRecord, error) {
	values, err := s.redis.MGet(ctx, s.keys.Username(userID), s.keys.Email(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	username, ok := values[0].(string)
	if !ok {
		return nil, ErrAccountMissing
	}
	email, _ := values[1].(string)

	return &AccountRecord{
		UserID:   userID,
		Username: username,
		Email:    email,
	}, nil
}

// Update applies change to userID in one MULTI/EXEC and returns the refreshed record.
//
// A username change writes the new primary value, points the new index entry
// at userID and removes the old index entry in the same batch. The old entry
// is removed only while it still points at userID, so a dangling entry owned
// by someone else is never clobbered.
func (s *AccountStore) Update(ctx context.Context, userID string, change AccountChange) (*AccountRecord, error) {
	userKey := s.keys.Username(userID)
	watched := []string{userKey}
	if change.Username != nil {
		watched = append(watched, s.keys.UserIDByUsername(*change.Username))
	}

	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, userKey).Result()
		if errors.Is(err, redis.Nil) {
			return ErrAccountMissing
		}
		if err != nil {
			return err
		}

		var (
			renameTo   string
			dropOldIdx string
			rewriteIdx bool
		)
		if change.Username != nil {
			renameTo = *change.Username
			owner, err := s.usernameOwned(ctx, tx, renameTo)
			if err != nil {
				return err
			}
			if owner != "" && owner != userID {
				return ErrUsernameTaken
			}
			rewriteIdx = true

			if renameTo != current {
				oldIdx := s.keys.UserIDByUsername(current)
				if err := tx.Watch(ctx, oldIdx).Err(); err != nil {
					return err
				}
				oldOwner, err := tx.Get(ctx, oldIdx).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				if oldOwner == userID {
					dropOldIdx = oldIdx
				}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if rewriteIdx {
				pipe.Set(ctx, userKey, renameTo, 0)
				pipe.Set(ctx, s.keys.UserIDByUsername(renameTo), userID, 0)
				if dropOldIdx != "" {
					pipe.Del(ctx, dropOldIdx)
				}
			}
			if change.Email != nil {
				pipe.Set(ctx, s.keys.Email(userID), *change.Email, 0)
			}
			if change.PasswordHash != nil {
				pipe.Set(ctx, s.keys.PasswordHash(userID), *change.PasswordHash, 0)
			}
			return nil
		})
		return err
	}, watched...)
	if err := s.mapErr(err); err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}

// Delete removes every key belonging to userID in one MULTI/EXEC: the primary
// attributes, the username index entry (if it still points at userID), the
// forward session pointer, the reverse pointer of the session it names, and
// the reverse pointer of sessionID when the caller holds one.
//
// Delete reports whether the user's primary record existed. Deleting an
// already removed user still clears any leftover session keys.
func (s *AccountStore) Delete(ctx context.Context, userID, sessionID string) (bool, error) {
	userKey := s.keys.Username(userID)
	forwardKey := s.keys.SessionOf(userID)
	var existed bool

	err := s.watch(ctx, func(tx *redis.Tx) error {
		username, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		existed = err == nil

		current, err := tx.Get(ctx, forwardKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		var indexKey string
		if existed {
			candidate := s.keys.UserIDByUsername(username)
			if err := tx.Watch(ctx, candidate).Err(); err != nil {
				return err
			}
			owner, err := tx.Get(ctx, candidate).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if owner == userID {
				indexKey = candidate
			}
		}

		doomed := append(s.keys.UserAttributes(userID), forwardKey)
		if indexKey != "" {
			doomed = append(doomed, indexKey)
		}
		if current != "" {
			doomed = append(doomed, s.keys.UserIDBySession(current))
		}
		if sessionID != "" && sessionID != current {
			doomed = append(doomed, s.keys.UserIDBySession(sessionID))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, doomed...)
			return nil
		})
		return err
	}, userKey, forwardKey)
	if err := s.mapErr(err); err != nil {
		return false, err
	}

	return existed, nil
}

func (s *AccountStore) getString(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return v, true, nil
}

func (s *AccountStore) watch(ctx context.Context, fn func(*redis.Tx) error, watched ...string) error {
	for i := 0; i < s.maxRetries; i++ {
		err := s.redis.Watch(ctx, fn, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxContention
}

func (s *AccountStore) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrAccountMissing):
		return err
	case errors.Is(err, ErrTxContention):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
