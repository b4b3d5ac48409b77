// Package redis stores guest session state in Redis. Every list lives under
// its own key with a sliding TTL; a sorted set indexes sessions by last
// write for listing and pruning.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/freshcart/internal/guest"
)

var (
	_ guest.Store  = (*Store)(nil)
	_ guest.Pruner = (*Store)(nil)
)

const (
	keyPrefix = "freshcart:guest:"
	indexKey  = keyPrefix + "sessions"
)

// Store implements guest.Store on a Redis client.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// Dial parses a redis:// URL and connects.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// New returns a Store. A zero ttl keeps sessions until pruned.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

func dataKey(sessionID, key string) string {
	return keyPrefix + sessionID + ":" + key
}

func (s *Store) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, dataKey(sessionID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting guest %s: %w", key, err)
	}
	return v, nil
}

// Put writes the list and refreshes the TTL of every list of the session.
func (s *Store) Put(ctx context.Context, sessionID, key string, value []byte) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, dataKey(sessionID, key), value, s.ttl)
		if s.ttl > 0 {
			for _, k := range guest.Keys {
				if k != key {
					p.Expire(ctx, dataKey(sessionID, k), s.ttl)
				}
			}
		}
		p.ZAdd(ctx, indexKey, redis.Z{
			Score:  float64(s.now().Unix()),
			Member: sessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing guest %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	dk := make([]string, len(keys))
	for i, k := range keys {
		dk[i] = dataKey(sessionID, k)
	}
	if err := s.rdb.Del(ctx, dk...).Err(); err != nil {
		return fmt.Errorf("deleting guest state: %w", err)
	}

	left, err := s.rdb.Exists(ctx, s.sessionKeys(sessionID)...).Result()
	if err != nil {
		return fmt.Errorf("checking guest state: %w", err)
	}
	if left == 0 {
		if err := s.rdb.ZRem(ctx, indexKey, sessionID).Err(); err != nil {
			return fmt.Errorf("unindexing guest session: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Sessions lists indexed sessions that still hold data, most recently
// written first.
func (s *Store) Sessions(ctx context.Context) ([]guest.Session, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing guest sessions: %w", err)
	}

	out := make([]guest.Session, 0, len(entries))
	for _, e := range entries {
		id, _ := e.Member.(string)
		vals, err := s.rdb.MGet(ctx, dataKey(id, guest.KeyCart), dataKey(id, guest.KeyWishlist)).Result()
		if err != nil {
			return nil, fmt.Errorf("reading guest session %s: %w", id, err)
		}
		if vals[0] == nil && vals[1] == nil {
			// Expired by TTL.
			continue
		}

		g := guest.Session{ID: id, UpdatedAt: time.Unix(int64(e.Score), 0)}
		if v, ok := vals[0].(string); ok {
			if units, subtotal, err := guest.Tally([]byte(v)); err == nil {
				g.CartUnits, g.CartSubtotal = units, subtotal
			}
		}
		if v, ok := vals[1].(string); ok {
			if n, _, err := guest.Tally([]byte(v)); err == nil {
				g.WishlistItems = n
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// Prune deletes sessions last written before the given time.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("finding stale guest sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Del(ctx, s.sessionKeys(id)...)
			p.ZRem(ctx, indexKey, id)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning guest sessions: %w", err)
	}
	return len(ids), nil
}

func (s *Store) sessionKeys(sessionID string) []string {
	keys := make([]string, len(guest.Keys))
	for i, k := range guest.Keys {
		keys[i] = dataKey(sessionID, k)
	}
	return keys
}
