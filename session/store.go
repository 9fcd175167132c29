package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSlotNotFound is an exported constant or variable used by the authentication core.
var ErrSlotNotFound = errors.New("session slot not found")

// ErrSessionCorrupt is an exported constant or variable used by the authentication core.
var ErrSessionCorrupt = errors.New("session blob corrupt")

// ErrRedisUnavailable is an exported constant or variable used by the authentication core.
var ErrRedisUnavailable = errors.New("redis unavailable")

const touchRetries = 4

// Store is a Redis-backed session store handling persistence, idle-TTL
// renewal, and atomic last-activity refresh. Operations touch one key per
// slot, so unrelated slots never contend.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sess"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Save installs sess in its slot, overwriting any prior record. Exactly
// one session record is live per slot.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	encoded, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sess.SlotID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads the session in slotID. Missing or expired slots return
// [ErrSlotNotFound].
func (s *Store) Get(ctx context.Context, slotID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(slotID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	sess.SlotID = slotID

	return sess, nil
}

// Touch refreshes the slot's last-activity timestamp and idle TTL. The
// read-modify-write runs under WATCH so two racing refreshes for the same
// slot cannot lose an update; a missing slot returns [ErrSlotNotFound].
func (s *Store) Touch(ctx context.Context, slotID string, lastActivity int64, ttl time.Duration) error {
	key := s.key(slotID)

	for i := 0; i < touchRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
			}
			sess.LastActivity = lastActivity

			encoded, err := Encode(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return ErrSlotNotFound
		case errors.Is(err, ErrSessionCorrupt):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return fmt.Errorf("%w: touch contention exceeded retries", ErrRedisUnavailable)
}

// Delete clears the slot. Deleting an absent slot is not an error.
func (s *Store) Delete(ctx context.Context, slotID string) error {
	if err := s.redis.Del(ctx, s.key(slotID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) key(slotID string) string {
	return s.prefix + ":" + slotID
}
