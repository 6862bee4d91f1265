package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"showroom/internal/metrics"
	"showroom/internal/model"
)

const scheduleCacheKey = "showroom:schedule:business_hours"

// ScheduleStore is the load/save contract shared by the plain and cached repositories.
type ScheduleStore interface {
	Load(ctx context.Context) (*model.ScheduleConfiguration, error)
	Save(ctx context.Context, cfg *model.ScheduleConfiguration) (*model.ScheduleConfiguration, error)
}

// CachedScheduleRepository puts a Redis read-through cache in front of a ScheduleStore.
// Cache failures fall back to the underlying store.
type CachedScheduleRepository struct {
	inner  ScheduleStore
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedScheduleRepository(inner ScheduleStore, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachedScheduleRepository {
	return &CachedScheduleRepository{
		inner:  inner,
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "schedule_cache").Logger(),
	}
}

func (c *CachedScheduleRepository) Load(ctx context.Context) (*model.ScheduleConfiguration, error) {
	var cfg model.ScheduleConfiguration
	if c.readCache(ctx, &cfg) {
		metrics.IncCache(true)
		return &cfg, nil
	}
	metrics.IncCache(false)

	loaded, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, loaded)
	return loaded, nil
}

func (c *CachedScheduleRepository) Save(ctx context.Context, cfg *model.ScheduleConfiguration) (*model.ScheduleConfiguration, error) {
	// Drop the entry first so a failed save never leaves a stale copy behind.
	c.invalidate(ctx)
	saved, err := c.inner.Save(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, saved)
	return saved, nil
}

func (c *CachedScheduleRepository) readCache(ctx context.Context, out *model.ScheduleConfiguration) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, scheduleCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("schedule cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false
	}
	out.Normalize()
	return true
}

func (c *CachedScheduleRepository) writeCache(ctx context.Context, cfg *model.ScheduleConfiguration) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, scheduleCacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("schedule cache write failed")
	}
}

func (c *CachedScheduleRepository) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, scheduleCacheKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("schedule cache invalidation failed")
	}
}
