package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/metrics"
)

// TickerSource is the subset of the WebSocket client the consumer polls
// for the latest observed price on each tracked ticker and for its own
// connection state.
type TickerSource interface {
	GetTicker(ticker string) (kalshi.TickerUpdate, bool)
	Connected() bool
}

// Subscriber is the subset of the WebSocket client the consumer drives
// during ticker discovery.
type Subscriber interface {
	Subscribe(tickers []string) error
	Unsubscribe(tickers []string)
}

// tickerMeta is what discovery learns about a ticker: which city, day,
// and bracket label it belongs to, so an incoming price update can be
// routed to the right cache entry.
type tickerMeta struct {
	City    domain.City
	Day     time.Time
	Bracket string
}

// Consumer discovers the live bracket tickers for every supported city
// across today and tomorrow, subscribes to them over the WebSocket,
// mirrors incoming prices into the shared Redis cache, and fans each
// update out over the cache's pub/sub channel.
type Consumer struct {
	source     TickerSource
	subscriber Subscriber
	lister     MarketLister
	cache      *Cache
	quality    *QualityTracker
	sink       metrics.Sink
	log        zerolog.Logger

	pollInterval      time.Duration
	discoveryInterval time.Duration

	mu         sync.RWMutex
	discovered map[string]tickerMeta

	wasConnected bool
}

// NewConsumer builds a Consumer. pollInterval governs how often tracked
// tickers are read for a fresh price; discoveryInterval governs how
// often the tracked ticker set itself is rediscovered and diffed
// (kalshi_ws_refresh_minutes).
func NewConsumer(source TickerSource, subscriber Subscriber, lister MarketLister, cache *Cache, quality *QualityTracker, sink metrics.Sink, log zerolog.Logger, pollInterval, discoveryInterval time.Duration) *Consumer {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if discoveryInterval <= 0 {
		discoveryInterval = 5 * time.Minute
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Consumer{
		source: source, subscriber: subscriber, lister: lister, cache: cache, quality: quality,
		sink: sink, log: log.With().Str("module", "FEED").Logger(),
		pollInterval: pollInterval, discoveryInterval: discoveryInterval,
		discovered: make(map[string]tickerMeta),
	}
}

// Run discovers tickers immediately, then continues polling prices and
// periodically rediscovering the ticker set until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	c.discover(ctx)

	pollTicker := time.NewTicker(c.pollInterval)
	defer pollTicker.Stop()
	discoveryTicker := time.NewTicker(c.discoveryInterval)
	defer discoveryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollTicker.C:
			c.pollOnce(ctx)
			c.checkConnection(ctx)
		case <-discoveryTicker.C:
			c.discover(ctx)
		}
	}
}

// discover lists every open bracket market for each supported city,
// computes the desired ticker set, subscribes to newly seen tickers,
// unsubscribes tickers no longer present, and writes each city/day's
// bracket-label-to-ticker map to the cache.
func (c *Consumer) discover(ctx context.Context) {
	fresh := make(map[string]tickerMeta)
	byCityDay := make(map[domain.City]map[time.Time]map[string]string)

	for _, city := range domain.AllCities {
		markets, err := c.lister.GetMarkets(ctx, city.SeriesTicker(), "open")
		if err != nil {
			c.log.Warn().Err(err).Str("city", string(city)).Msg("feed discovery: listing markets failed")
			continue
		}
		for _, m := range markets {
			day, err := marketDay(m)
			if err != nil {
				continue
			}
			fresh[m.Ticker] = tickerMeta{City: city, Day: day, Bracket: m.Title}

			if byCityDay[city] == nil {
				byCityDay[city] = make(map[time.Time]map[string]string)
			}
			if byCityDay[city][day] == nil {
				byCityDay[city][day] = make(map[string]string)
			}
			byCityDay[city][day][m.Title] = m.Ticker
		}
	}

	c.mu.Lock()
	previous := c.discovered
	c.discovered = fresh
	c.mu.Unlock()

	var added, removed []string
	for t := range fresh {
		if _, ok := previous[t]; !ok {
			added = append(added, t)
		}
	}
	for t := range previous {
		if _, ok := fresh[t]; !ok {
			removed = append(removed, t)
		}
	}

	if len(added) > 0 {
		if err := c.subscriber.Subscribe(added); err != nil {
			c.log.Warn().Err(err).Int("tickers", len(added)).Msg("feed discovery: subscribe failed")
		}
	}
	if len(removed) > 0 {
		c.subscriber.Unsubscribe(removed)
	}
	if len(added) > 0 || len(removed) > 0 {
		c.log.Info().Int("added", len(added)).Int("removed", len(removed)).Int("total", len(fresh)).
			Msg("feed discovery: ticker set updated")
	}

	for city, byDay := range byCityDay {
		for day, byBracket := range byDay {
			if err := c.cache.SetTickerMap(ctx, city, day, byBracket); err != nil {
				c.log.Warn().Err(err).Str("city", string(city)).Msg("feed discovery: writing ticker map failed")
			}
		}
	}
}

// marketDay derives the ET trading day a market's bracket resolves on
// from its expiration time, since the exchange's markets endpoint does
// not expose an explicit event date field directly on the market.
func marketDay(m kalshi.Market) (time.Time, error) {
	t, err := m.ExpirationParsed()
	if err != nil {
		return time.Time{}, err
	}
	return domain.TradingDay(t), nil
}

// pollOnce reads the latest observed price for every discovered ticker
// and mirrors it into the cache. Unknown tickers (not yet discovered)
// are never polled in the first place, since the poll loop only walks
// the discovered set. Cache write failures are logged and swallowed.
func (c *Consumer) pollOnce(ctx context.Context) {
	c.mu.RLock()
	tickers := make(map[string]tickerMeta, len(c.discovered))
	for t, meta := range c.discovered {
		tickers[t] = meta
	}
	c.mu.RUnlock()

	for t, meta := range tickers {
		update, ok := c.source.GetTicker(t)
		if !ok {
			continue
		}

		price := update.YesBid
		if price <= 0 {
			price = update.Price
		}
		if price <= 0 {
			continue
		}

		if err := c.cache.SetPrice(ctx, meta.City, meta.Day, meta.Bracket, price); err != nil {
			c.log.Warn().Err(err).Str("ticker", t).Msg("failed to cache price snapshot")
		} else if err := c.cache.Publish(ctx, "price_update", map[string]any{
			"city": meta.City, "bracket": meta.Bracket, "ticker": t, "price_cents": price,
		}); err != nil {
			c.log.Warn().Err(err).Str("ticker", t).Msg("failed to publish price update")
		}

		if c.quality != nil {
			c.quality.Update(t, float64(price), update.UpdatedAt)
		}
	}
}

// checkConnection mirrors the WebSocket's connection state into the
// shared liveness key and counts every disconnect transition.
func (c *Consumer) checkConnection(ctx context.Context) {
	connected := c.source.Connected()
	if err := c.cache.SetFeedStatus(ctx, connected); err != nil {
		c.log.Warn().Err(err).Msg("failed to update feed status key")
	}
	if c.wasConnected && !connected {
		c.sink.IncFeedReconnect()
	}
	c.wasConnected = connected
}
