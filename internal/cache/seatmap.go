// Package cache holds the Redis read-through cache for showtime seat maps.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// genTTL outlives any entry TTL, so an entry never survives its generation
// counter.
const genTTL = 24 * time.Hour

// setIfCurrent stores an entry only while the showtime's generation is
// still the one the reader saw before loading from the database.
// KEYS[1] generation key, KEYS[2] entry key.
// ARGV[1] expected generation, ARGV[2] payload, ARGV[3] ttl in ms.
var setIfCurrent = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (cur or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// SeatMaps stores serialized seat maps under <prefix>:<showtime_id>, next to
// a generation counter under <prefix>:gen:<showtime_id> that every
// invalidation bumps. A write carrying an older generation is dropped, so a
// read that raced a booking cannot repopulate the cache with stale seats.
//
// A nil client or a disabled config turns every call into a miss, so callers
// never need to check whether Redis is available.
type SeatMaps struct {
	rdb *redis.Client
	cfg config.SeatCacheConfig
	log *zap.Logger
}

func NewSeatMaps(rdb *redis.Client, cfg config.SeatCacheConfig, log *zap.Logger) *SeatMaps {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeatMaps{rdb: rdb, cfg: cfg, log: log}
}

func (c *SeatMaps) enabled() bool { return c != nil && c.rdb != nil && c.cfg.Enabled && c.cfg.TTL > 0 }

func (c *SeatMaps) prefix() string {
	if c.cfg.Prefix == "" {
		return "seatmap"
	}
	return c.cfg.Prefix
}

// Key returns the Redis key of a showtime's seat map.
func (c *SeatMaps) Key(showtimeID uint64) string {
	return c.prefix() + ":" + strconv.FormatUint(showtimeID, 10)
}

// GenKey returns the Redis key of a showtime's generation counter.
func (c *SeatMaps) GenKey(showtimeID uint64) string {
	return c.prefix() + ":gen:" + strconv.FormatUint(showtimeID, 10)
}

// Get returns the cached seat map, or ok=false on a miss. gen is the
// showtime's current generation and must be handed back to Set. Redis
// failures are logged and reported as misses.
func (c *SeatMaps) Get(ctx context.Context, showtimeID uint64) (m *model.SeatMap, gen uint64, ok bool) {
	if !c.enabled() {
		return nil, 0, false
	}
	vals, err := c.rdb.MGet(ctx, c.GenKey(showtimeID), c.Key(showtimeID)).Result()
	if err != nil {
		c.log.Warn("seat map cache get failed", zap.Uint64("showtime_id", showtimeID), zap.Error(err))
		return nil, 0, false
	}
	if s, isStr := vals[0].(string); isStr {
		if gen, err = strconv.ParseUint(s, 10, 64); err != nil {
			c.log.Warn("seat map generation corrupt", zap.Uint64("showtime_id", showtimeID), zap.Error(err))
			return nil, 0, false
		}
	}
	raw, isStr := vals[1].(string)
	if !isStr {
		return nil, gen, false
	}
	var sm model.SeatMap
	if err := json.Unmarshal([]byte(raw), &sm); err != nil {
		c.log.Warn("seat map cache entry corrupt", zap.Uint64("showtime_id", showtimeID), zap.Error(err))
		return nil, gen, false
	}
	return &sm, gen, true
}

// Set stores m for the configured TTL unless the showtime was invalidated
// after gen was read.
func (c *SeatMaps) Set(ctx context.Context, showtimeID, gen uint64, m *model.SeatMap) {
	if !c.enabled() || m == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	keys := []string{c.GenKey(showtimeID), c.Key(showtimeID)}
	stored, err := setIfCurrent.Run(ctx, c.rdb, keys, strconv.FormatUint(gen, 10), raw, c.cfg.TTL.Milliseconds()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("seat map cache set failed", zap.Uint64("showtime_id", showtimeID), zap.Error(err))
		return
	}
	if stored == 0 {
		c.log.Debug("seat map cache set skipped, generation moved", zap.Uint64("showtime_id", showtimeID))
	}
}

// Invalidate bumps the generation of the given showtimes and drops their
// cached seat maps.
func (c *SeatMaps) Invalidate(ctx context.Context, showtimeIDs ...uint64) {
	if !c.enabled() || len(showtimeIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range showtimeIDs {
			p.Incr(ctx, c.GenKey(id))
			p.Expire(ctx, c.GenKey(id), genTTL)
			p.Del(ctx, c.Key(id))
		}
		return nil
	})
	if err != nil {
		c.log.Warn("seat map cache invalidate failed", zap.Uint64s("showtime_ids", showtimeIDs), zap.Error(err))
	}
}
