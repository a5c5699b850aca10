// Package feed bridges the exchange WebSocket stream into a shared
// Redis price cache, a periodic ticker-discovery loop, and a
// non-gating market-quality diagnostic.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// tickerTTLFloor is the minimum TTL for the ticker-map key, independent
// of the configured price TTL, so a slow-refreshing discovery pass
// doesn't let the ticker map expire out from under live prices.
const tickerTTLFloor = 300 * time.Second

const (
	feedStatusKey      = "weather:feed:status"
	feedEventsChannel  = "weather:feed:events"
)

// Cache stores, per (city, trading day), a bracket-label-keyed price
// map and a bracket-label-keyed ticker map in Redis, plus a single
// feed-liveness key and a pub/sub fan-out channel for UI listeners.
type Cache struct {
	rdb      *redis.Client
	priceTTL time.Duration
}

// NewCache builds a Cache. priceTTL is the configured price-entry TTL
// (kalshi_ws_cache_ttl_seconds); the ticker map's TTL is never shorter
// than it and is at least 300s.
func NewCache(addr string, db int, priceTTL time.Duration) *Cache {
	if priceTTL <= 0 {
		priceTTL = 90 * time.Second
	}
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr, DB: db}), priceTTL: priceTTL}
}

func dayKey(day time.Time) string {
	return day.Format("060102")
}

func priceCacheKey(city domain.City, day time.Time) string {
	return fmt.Sprintf("weather:prices:%s:%s", city, dayKey(day))
}

func tickerCacheKey(city domain.City, day time.Time) string {
	return fmt.Sprintf("weather:tickers:%s:%s", city, dayKey(day))
}

func (c *Cache) tickerTTL() time.Duration {
	if c.priceTTL > tickerTTLFloor {
		return c.priceTTL
	}
	return tickerTTLFloor
}

// SetTickerMap overwrites the full bracket-label -> ticker map for a
// city/day, called once per discovery pass.
func (c *Cache) SetTickerMap(ctx context.Context, city domain.City, day time.Time, byBracket map[string]string) error {
	data, err := json.Marshal(byBracket)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, tickerCacheKey(city, day), data, c.tickerTTL()).Err()
}

// GetTickerMap returns the cached bracket-label -> ticker map, or an
// empty map if no discovery pass has populated it yet.
func (c *Cache) GetTickerMap(ctx context.Context, city domain.City, day time.Time) (map[string]string, error) {
	data, err := c.rdb.Get(ctx, tickerCacheKey(city, day)).Bytes()
	if err == redis.Nil {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feed: reading ticker cache: %w", err)
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("feed: decoding ticker cache: %w", err)
	}
	return out, nil
}

// SetPrice overwrites a single bracket's price within the city/day
// price map (read-modify-write) and refreshes the map's TTL.
func (c *Cache) SetPrice(ctx context.Context, city domain.City, day time.Time, bracketLabel string, cents int) error {
	key := priceCacheKey(city, day)
	prices, err := c.getPriceMap(ctx, key)
	if err != nil {
		return err
	}
	prices[bracketLabel] = cents
	data, err := json.Marshal(prices)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.priceTTL).Err()
}

// GetPrices returns the cached bracket-label -> price-in-cents map for
// a city/day, or an empty map if nothing has been cached yet.
func (c *Cache) GetPrices(ctx context.Context, city domain.City, day time.Time) (map[string]int, error) {
	return c.getPriceMap(ctx, priceCacheKey(city, day))
}

func (c *Cache) getPriceMap(ctx context.Context, key string) (map[string]int, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feed: reading price cache: %w", err)
	}
	var out map[string]int
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("feed: decoding price cache: %w", err)
	}
	return out, nil
}

// SetFeedStatus sets the single liveness key shared by every reader of
// the feed. No TTL: it is an explicit boolean, not a heartbeat.
func (c *Cache) SetFeedStatus(ctx context.Context, connected bool) error {
	val := "0"
	if connected {
		val = "1"
	}
	return c.rdb.Set(ctx, feedStatusKey, val, 0).Err()
}

// FeedStatus reports whether the feed last reported itself connected.
func (c *Cache) FeedStatus(ctx context.Context) (bool, error) {
	val, err := c.rdb.Get(ctx, feedStatusKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

// FeedEvent is the fan-out shape published on the pub/sub channel for
// UI listeners: a discriminator plus an arbitrary payload.
type FeedEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publish fans eventType/data out over the shared pub/sub channel.
// Failures are the caller's concern to log and swallow, matching the
// "never kill the feed" rule for cache-layer errors.
func (c *Cache) Publish(ctx context.Context, eventType string, data any) error {
	payload, err := json.Marshal(FeedEvent{Type: eventType, Data: data})
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, feedEventsChannel, payload).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
