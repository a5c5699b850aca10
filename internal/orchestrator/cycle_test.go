package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
	"github.com/weatherdesk/tradecore/internal/executor"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/risk"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

func TestSortedCitiesIsLexicographic(t *testing.T) {
	cities := sortedCities()
	for i := 1; i < len(cities); i++ {
		assert.True(t, cities[i-1] < cities[i])
	}
}

type fakeForecastSource struct{}

func (fakeForecastSource) FetchForecasts(ctx context.Context, city domain.City) ([]ensemble.Forecast, error) {
	return []ensemble.Forecast{
		{Source: "NWS", TempF: 60},
		{Source: "Open-Meteo:ECMWF", TempF: 61},
	}, nil
}

type fakeMarketSource struct{}

func (fakeMarketSource) FetchBracketMarkets(ctx context.Context, city domain.City) ([]scanner.BracketMarket, error) {
	return []scanner.BracketMarket{
		{Label: "<=55", Ticker: "T1", PriceCents: 5},
		{Label: "56-58", Ticker: "T2", PriceCents: 10},
		{Label: "59-61", Ticker: "T3", PriceCents: 70},
		{Label: "62-64", Ticker: "T4", PriceCents: 10},
		{Label: ">=65", Ticker: "T5", PriceCents: 5},
	}, nil
}

type fakeBankrollSource struct{ cents domain.Cents }

func (f fakeBankrollSource) BankrollCents(ctx context.Context) (domain.Cents, error) {
	return f.cents, nil
}

type fakeErrHistory struct{}

func (fakeErrHistory) ForecastErrors(ctx context.Context, city domain.City, season domain.Season) ([]float64, error) {
	return nil, nil
}

type fakePlacer struct{}

func (fakePlacer) CreateOrder(ctx context.Context, req kalshi.OrderRequest) (*kalshi.Order, error) {
	return &kalshi.Order{OrderID: "x", Status: "executed", FilledCount: req.Count}, nil
}

type fakeTradeStore struct{ inserted int }

func (f *fakeTradeStore) InsertTrade(ctx context.Context, id, kalshiOrderID string, signal scanner.TradeSignal, filledCount int, now time.Time) error {
	f.inserted++
	return nil
}

func TestCycleRunExecutesSignals(t *testing.T) {
	riskMgr := risk.NewManager(time.Now(), risk.Settings{
		MaxTradeSizeCents:     100_000,
		MaxDailyExposureCents: 1_000_000,
		MaxDailyLossCents:     1_000_000,
		MinEVThreshold:        -1, // accept everything for this test
		Cooldown:              risk.CooldownSettings{PerLossCooldownMinutes: 30, ConsecutiveLossLimit: 3},
	})

	store := &fakeTradeStore{}
	exec := executor.NewExecutor(fakePlacer{}, store, false, zerolog.Nop())

	cycle := NewCycle(
		fakeForecastSource{}, fakeMarketSource{}, fakeBankrollSource{cents: 100_000},
		fakeErrHistory{}, riskMgr, exec, nil,
		CycleSettings{MinEVThreshold: -1, Kelly: scanner.KellySettings{UseKellySizing: false}},
		zerolog.Nop(),
	)

	err := cycle.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Greater(t, store.inserted, 0)
}
