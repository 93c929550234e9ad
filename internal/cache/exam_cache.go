// Package cache keeps read models of the wizard in Redis and drops them when
// a mutation commits.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/config"
	"github.com/stemsi/exstem-wizard/internal/model"
	"github.com/stemsi/exstem-wizard/internal/service"
)

const scanBatch = 200

// ExamCache caches exam listing pages. It implements service.ListCache and
// service.MutationListener.
type ExamCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

var (
	_ service.ListCache        = (*ExamCache)(nil)
	_ service.MutationListener = (*ExamCache)(nil)
)

// NewExamCache creates a new ExamCache.
func NewExamCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamCache {
	return &ExamCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "exam_cache").Logger(),
	}
}

func listKey(filter model.ExamFilter) string {
	state := "all"
	if filter.State != nil {
		state = filter.State.Code()
	}
	return config.CacheKey.ExamListKey(state, filter.Search, filter.Limit, filter.Offset)
}

// GetExamPage returns a cached page. Misses and Redis failures both report false.
func (c *ExamCache) GetExamPage(ctx context.Context, filter model.ExamFilter) (*service.ExamPage, bool) {
	data, err := c.rdb.Get(ctx, listKey(filter)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("Exam list cache read failed")
		}
		return nil, false
	}

	var page service.ExamPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.log.Warn().Err(err).Msg("Exam list cache entry corrupt")
		return nil, false
	}
	return &page, true
}

// SetExamPage stores a page with the configured TTL.
func (c *ExamCache) SetExamPage(ctx context.Context, filter model.ExamFilter, page *service.ExamPage) {
	data, err := json.Marshal(page)
	if err != nil {
		c.log.Warn().Err(err).Msg("Exam list cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, listKey(filter), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("Exam list cache write failed")
	}
}

// MutationCompleted drops every cached listing page. Any committed change can
// move an exam between pages, so invalidation is not per exam. Closed
// attempts do not show in listings and are ignored.
func (c *ExamCache) MutationCompleted(ctx context.Context, ev service.MutationEvent) {
	if ev.Kind == service.MutationAttemptsClosed {
		return
	}
	removed, err := c.Invalidate(ctx)
	if err != nil {
		c.log.Warn().Err(err).Int64("exam_id", ev.ExamID).Str("kind", string(ev.Kind)).Msg("Exam list cache invalidation failed")
		return
	}
	c.log.Debug().Int64("exam_id", ev.ExamID).Str("kind", string(ev.Kind)).Int("keys", removed).Msg("Exam list cache invalidated")
}

// Invalidate deletes every cached listing page and returns how many keys it removed.
func (c *ExamCache) Invalidate(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, config.CacheKey.ExamListPattern(), scanBatch).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
