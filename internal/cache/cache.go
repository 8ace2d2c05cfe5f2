// Package cache puts a Redis TTL cache in front of the schedule and
// policy stores. A cache failure is never an error: reads fall through
// to the wrapped store and writes are best effort.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"loungebook/internal/booking"
	"loungebook/internal/model"
	"loungebook/internal/schedule"
)

// Schedules caches resolved schedule rows per resource.
type Schedules struct {
	inner  booking.ScheduleStore
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewSchedules wraps a schedule store with Redis caching.
func NewSchedules(inner booking.ScheduleStore, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Schedules {
	return &Schedules{inner: inner, redis: rdb, ttl: ttl, logger: logger}
}

type scheduleEntry struct {
	Specific []schedule.Row `json:"specific"`
	Global   []schedule.Row `json:"global"`
}

func scheduleKey(kind model.ResourceKind, stationID string) string {
	return fmt.Sprintf("schedules:%s:%s", kind, stationID)
}

// Rows returns the cached rows for the resource, falling back to the
// wrapped store and priming the cache on a miss.
func (c *Schedules) Rows(ctx context.Context, kind model.ResourceKind, stationID string) (specific, global []schedule.Row, err error) {
	key := scheduleKey(kind, stationID)

	var entry scheduleEntry
	if c.readCache(ctx, key, &entry) {
		return entry.Specific, entry.Global, nil
	}

	specific, global, err = c.inner.Rows(ctx, kind, stationID)
	if err != nil {
		return nil, nil, err
	}
	c.writeCache(ctx, key, scheduleEntry{Specific: specific, Global: global})
	return specific, global, nil
}

// Invalidate drops the cached rows for one resource. Call after a
// schedule write.
func (c *Schedules) Invalidate(ctx context.Context, kind model.ResourceKind, stationID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, scheduleKey(kind, stationID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("schedule cache invalidation failed")
	}
}

func (c *Schedules) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Schedules) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache write failed")
	}
}

// Policies caches the per-kind booking policy.
type Policies struct {
	inner  booking.PolicyStore
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewPolicies wraps a policy store with Redis caching.
func NewPolicies(inner booking.PolicyStore, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Policies {
	return &Policies{inner: inner, redis: rdb, ttl: ttl, logger: logger}
}

func policyKey(kind model.ResourceKind) string {
	return "policy:" + string(kind)
}

// PolicyFor returns the cached policy for the kind, falling back to the
// wrapped store on a miss.
func (c *Policies) PolicyFor(ctx context.Context, kind model.ResourceKind) (model.Policy, error) {
	key := policyKey(kind)

	if c.redis != nil && c.ttl > 0 {
		if val, err := c.redis.Get(ctx, key).Result(); err == nil {
			var p model.Policy
			if json.Unmarshal([]byte(val), &p) == nil {
				return p, nil
			}
		}
	}

	p, err := c.inner.PolicyFor(ctx, kind)
	if err != nil {
		return model.Policy{}, err
	}

	if c.redis != nil && c.ttl > 0 {
		if data, err := json.Marshal(p); err == nil {
			if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("policy cache write failed")
			}
		}
	}
	return p, nil
}

// Invalidate drops the cached policy for one kind. Call after a
// settings write.
func (c *Policies) Invalidate(ctx context.Context, kind model.ResourceKind) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, policyKey(kind)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("policy cache invalidation failed")
	}
}
