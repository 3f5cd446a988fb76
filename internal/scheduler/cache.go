package scheduler

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ScheduleCache is the §4.6 LRU cache keyed by ConflictGraph fingerprint. An
// optional Redis mirror extends it to a second tier shared across processes,
// grounded on the teacher's CacheService/CacheRepository split.
type ScheduleCache struct {
	lru    *lru.Cache[string, Coloring]
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	hits   int64
	misses int64
}

// NewScheduleCache builds an in-process LRU cache. redisClient may be nil,
// in which case the cache is purely in-process.
func NewScheduleCache(capacity int, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) (*ScheduleCache, error) {
	if capacity <= 0 {
		capacity = 100
	}
	c, err := lru.New[string, Coloring](capacity)
	if err != nil {
		return nil, err
	}
	return &ScheduleCache{lru: c, redis: redisClient, ttl: ttl, logger: logger}, nil
}

// Get returns a clone of the cached Coloring for fingerprint, checking the
// in-process LRU first and falling back to the Redis mirror when present.
func (sc *ScheduleCache) Get(ctx context.Context, fingerprint string) (Coloring, bool) {
	if coloring, ok := sc.lru.Get(fingerprint); ok {
		sc.hits++
		return coloring.Clone(), true
	}

	if sc.redis != nil {
		if coloring, ok := sc.getFromRedis(ctx, fingerprint); ok {
			sc.lru.Add(fingerprint, coloring)
			sc.hits++
			return coloring.Clone(), true
		}
	}

	sc.misses++
	return nil, false
}

// Put stores a Coloring under fingerprint in both tiers.
func (sc *ScheduleCache) Put(ctx context.Context, fingerprint string, coloring Coloring) {
	sc.lru.Add(fingerprint, coloring.Clone())

	if sc.redis == nil {
		return
	}
	payload, err := json.Marshal(coloring)
	if err != nil {
		if sc.logger != nil {
			sc.logger.Warn("schedule_cache_marshal_failed", zap.Error(err))
		}
		return
	}
	if err := sc.redis.Set(ctx, redisKey(fingerprint), payload, sc.ttl).Err(); err != nil && sc.logger != nil {
		sc.logger.Warn("schedule_cache_redis_set_failed", zap.Error(err))
	}
}

func (sc *ScheduleCache) getFromRedis(ctx context.Context, fingerprint string) (Coloring, bool) {
	raw, err := sc.redis.Get(ctx, redisKey(fingerprint)).Bytes()
	if err != nil {
		return nil, false
	}
	var coloring Coloring
	if err := json.Unmarshal(raw, &coloring); err != nil {
		if sc.logger != nil {
			sc.logger.Warn("schedule_cache_unmarshal_failed", zap.Error(err))
		}
		return nil, false
	}
	return coloring, true
}

func redisKey(fingerprint string) string {
	return "classsched:schedule:" + fingerprint
}

// Stats reports cumulative hit/miss counters.
func (sc *ScheduleCache) Stats() (hits, misses int64) {
	return sc.hits, sc.misses
}

// Len returns the number of entries currently held in the in-process tier.
func (sc *ScheduleCache) Len() int {
	return sc.lru.Len()
}
