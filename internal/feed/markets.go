package feed

import (
	"context"
	"fmt"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

// MarketLister is the subset of the exchange client a BracketMarketSource
// needs, narrowed for testability.
type MarketLister interface {
	GetMarkets(ctx context.Context, seriesTicker, status string) ([]kalshi.Market, error)
}

// BracketMarketSource turns a city's open bracket markets on the
// exchange into the scanner's BracketMarket shape, pricing each by its
// YES bid, else its YES ask, else the cached price, else the market's
// own last price. Implements
// orchestrator.MarketSource.
type BracketMarketSource struct {
	Client MarketLister
	Cache  *Cache
}

func NewBracketMarketSource(client MarketLister, cache *Cache) *BracketMarketSource {
	return &BracketMarketSource{Client: client, Cache: cache}
}

// FetchBracketMarkets lists every open market in a city's daily-high
// series and prices each by its best YES bid, with the YES ask, the
// cached price and the market's last-trade price as fallbacks, in that
// order. Markets with no positive price are skipped.
func (s *BracketMarketSource) FetchBracketMarkets(ctx context.Context, city domain.City) ([]scanner.BracketMarket, error) {
	series := city.SeriesTicker()
	if series == "" {
		return nil, fmt.Errorf("feed: no series ticker for city %q", city)
	}

	markets, err := s.Client.GetMarkets(ctx, series, "open")
	if err != nil {
		return nil, err
	}

	out := make([]scanner.BracketMarket, 0, len(markets))
	for _, m := range markets {
		price := s.priceFor(ctx, city, m)
		if price <= 0 {
			continue
		}
		out = append(out, scanner.BracketMarket{
			Label:      m.Title,
			Ticker:     m.Ticker,
			PriceCents: domain.Cents(price),
		})
	}
	return out, nil
}

// priceFor prefers the market's own REST-quoted YES bid, then its YES
// ask, falling back to the cached price for the bracket only when
// neither is quoted, and finally to the market's own last-trade price.
func (s *BracketMarketSource) priceFor(ctx context.Context, city domain.City, m kalshi.Market) int {
	if m.YesBid > 0 {
		return m.YesBid
	}
	if m.YesAsk > 0 {
		return m.YesAsk
	}
	if s.Cache != nil {
		if day, err := m.ExpirationParsed(); err == nil {
			if prices, err := s.Cache.GetPrices(ctx, city, domain.TradingDay(day)); err == nil {
				if p, ok := prices[m.Title]; ok && p > 0 {
					return p
				}
			}
		}
	}
	return m.LastPrice
}
