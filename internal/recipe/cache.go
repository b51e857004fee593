package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"recipehub/pkg/models"
)

const (
	cacheKeyPrefix  = "recipehub:search:"
	DefaultCacheTTL = 5 * time.Minute
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_search_cache_lookups_total",
			Help: "Search cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)
)

// SearchPage is the cached form of one list/search response.
type SearchPage struct {
	Total int             `json:"total"`
	Items []models.Recipe `json:"items"`
}

// SearchCache keeps search results in Redis. A nil *SearchCache is valid
// and never hits, so the API runs unchanged without Redis.
type SearchCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSearchCache(rdb *redis.Client, ttl time.Duration) *SearchCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SearchCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached page, or ok=false on a miss. Redis errors are
// reported but callers treat them as a miss.
func (c *SearchCache) Get(ctx context.Context, key string) (*SearchPage, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	data, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheLookups.WithLabelValues("miss").Inc()
			return nil, false, nil
		}
		cacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var page SearchPage
	if err := json.Unmarshal(data, &page); err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("decode cached page: %w", err)
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return &page, true, nil
}

func (c *SearchCache) Set(ctx context.Context, key string, page *SearchPage) error {
	if c == nil || page == nil {
		return nil
	}

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode cached page: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Flush drops every cached search, e.g. after the catalog was reloaded.
func (c *SearchCache) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Key renders a ListQuery into a stable cache key.
func (q ListQuery) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s|diet=%s|health=%s|ing=%s",
		strings.ToLower(strings.TrimSpace(q.Q)),
		strings.ToLower(strings.Join(q.Diet, ",")),
		strings.ToLower(strings.Join(q.Health, ",")),
		strings.ToLower(strings.TrimSpace(q.Ingredient)),
	)
	if q.MinCalories != nil {
		fmt.Fprintf(&b, "|min=%g", *q.MinCalories)
	}
	if q.MaxCalories != nil {
		fmt.Fprintf(&b, "|max=%g", *q.MaxCalories)
	}
	fmt.Fprintf(&b, "|l=%d|o=%d", normLimit(q.Limit), max(q.Offset, 0))
	return b.String()
}
