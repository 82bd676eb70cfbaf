package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CalendarCache caches rendered calendar views in redis. Invalidation is by
// version stamp: every write to a venue or artist calendar bumps a counter,
// and the counters are baked into the cache key, so stale entries are simply
// never read again and age out via TTL.
type CalendarCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCalendarCache(rdb *redis.Client, ttl time.Duration) *CalendarCache {
	return &CalendarCache{rdb: rdb, ttl: ttl}
}

// VenueScope and ArtistScope name the two invalidation domains.
func VenueScope(id uuid.UUID) string  { return "venue:" + id.String() }
func ArtistScope(id uuid.UUID) string { return "artist:" + id.String() }

// Invalidate bumps the version counter for one scope. The counter key carries
// its own TTL so abandoned scopes do not accumulate forever.
func (c *CalendarCache) Invalidate(ctx context.Context, scope string) error {
	key := versionKey(scope)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 30*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// Versions fetches the current counters for a set of scopes in one round trip.
// A scope that was never bumped reads as zero.
func (c *CalendarCache) Versions(ctx context.Context, scopes []string) ([]int64, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	keys := make([]string, len(scopes))
	for i, s := range scopes {
		keys[i] = versionKey(s)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version %s: %w", keys[i], err)
		}
		out[i] = n
	}
	return out, nil
}

// Get loads a cached view into dest. The second return is false on a miss.
func (c *CalendarCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CalendarCache) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// ViewKey composes the cache key for one rendered calendar view. The versions
// slice must be parallel to scopes, in the same order.
func ViewKey(mode string, window string, scopes []string, versions []int64) string {
	var b strings.Builder
	b.WriteString("calview:")
	b.WriteString(mode)
	b.WriteByte(':')
	b.WriteString(window)
	for i, s := range scopes {
		b.WriteByte('|')
		b.WriteString(s)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(versions[i], 10))
	}
	return b.String()
}

func versionKey(scope string) string {
	return "calver:" + scope
}
