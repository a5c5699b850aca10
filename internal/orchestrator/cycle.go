// Package orchestrator joins the feed, ensemble, scanner, risk,
// executor and settlement packages into the background plane's
// periodic trading cycle, daily settlement sweep, and pending-trade
// TTL sweep.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
	"github.com/weatherdesk/tradecore/internal/executor"
	"github.com/weatherdesk/tradecore/internal/logging"
	"github.com/weatherdesk/tradecore/internal/metrics"
	"github.com/weatherdesk/tradecore/internal/risk"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

// ForecastSource fetches raw multi-model forecasts for one city ahead
// of a trading cycle. I/O only — no ensemble math.
type ForecastSource interface {
	FetchForecasts(ctx context.Context, city domain.City) ([]ensemble.Forecast, error)
}

// MarketSource fetches the current bracket market snapshot (label,
// ticker, YES price) for one city.
type MarketSource interface {
	FetchBracketMarkets(ctx context.Context, city domain.City) ([]scanner.BracketMarket, error)
}

// BankrollSource reports the account's current spendable balance, used
// to size Kelly positions each cycle.
type BankrollSource interface {
	BankrollCents(ctx context.Context) (domain.Cents, error)
}

// CycleSettings carries the per-cycle knobs that come from config
// rather than from a live data source.
type CycleSettings struct {
	MinEVThreshold   float64
	Kelly            scanner.KellySettings
	ModelWeights     map[string]float64
	PredictionMaxAge time.Duration
}

// Cycle runs one pass of the trading loop: fetch forecasts and market
// prices for every city, turn them into EV-positive signals, and push
// each surviving signal through risk review and execution.
type Cycle struct {
	Forecasts  ForecastSource
	Markets    MarketSource
	Bankroll   BankrollSource
	ErrHistory ensemble.ErrorHistoryStore
	Risk       *risk.Manager
	Executor   *executor.Executor
	Metrics    metrics.Sink
	Settings   CycleSettings
	log        zerolog.Logger
}

func NewCycle(forecasts ForecastSource, markets MarketSource, bankroll BankrollSource, errHistory ensemble.ErrorHistoryStore,
	riskMgr *risk.Manager, exec *executor.Executor, sink metrics.Sink, settings CycleSettings, log zerolog.Logger) *Cycle {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Cycle{
		Forecasts: forecasts, Markets: markets, Bankroll: bankroll, ErrHistory: errHistory,
		Risk: riskMgr, Executor: exec, Metrics: sink, Settings: settings,
		log: logging.For(log, logging.TagTrading),
	}
}

// sortedCities returns the closed city enum in lexicographic order, so
// one cycle's decisions are reproducible regardless of map iteration.
func sortedCities() []domain.City {
	cities := append([]domain.City(nil), domain.AllCities...)
	sort.Slice(cities, func(i, j int) bool { return cities[i] < cities[j] })
	return cities
}

// Run executes one full trading cycle: a concurrent forecast-fetch fan
// out (I/O only), followed by strictly serialized, city-code-ordered
// decision processing. Concurrency only ever speeds up I/O; it never
// reorders or parallelizes the decision path itself.
func (c *Cycle) Run(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer func() { c.Metrics.ObserveCycleDuration(time.Since(start).Seconds()) }()

	cities := sortedCities()

	forecastsByCity := make(map[domain.City][]ensemble.Forecast, len(cities))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, city := range cities {
		city := city
		g.Go(func() error {
			fs, err := c.Forecasts.FetchForecasts(gctx, city)
			if err != nil {
				c.log.Warn().Err(err).Str("city", string(city)).Msg("forecast fetch failed, skipping city this cycle")
				return nil
			}
			mu.Lock()
			forecastsByCity[city] = fs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bankroll, err := c.Bankroll.BankrollCents(ctx)
	if err != nil {
		return err
	}

	for _, city := range cities {
		forecasts, ok := forecastsByCity[city]
		if !ok || len(forecasts) == 0 {
			continue
		}
		if err := c.processCity(ctx, city, forecasts, bankroll, now); err != nil {
			c.log.Warn().Err(err).Str("city", string(city)).Msg("city processing failed, continuing to next city")
		}
	}

	return nil
}

func (c *Cycle) processCity(ctx context.Context, city domain.City, forecasts []ensemble.Forecast, bankroll domain.Cents, now time.Time) error {
	ens, err := ensemble.CalculateEnsembleForecast(forecasts, c.Settings.ModelWeights)
	if err != nil {
		return err
	}

	errStd, err := ensemble.CalculateErrorStd(ctx, c.ErrHistory, city, int(now.Month()))
	if err != nil {
		return err
	}

	markets, err := c.Markets.FetchBracketMarkets(ctx, city)
	if err != nil {
		return err
	}

	labels := make([]string, 0, len(markets))
	marketByLabel := make(map[string]scanner.BracketMarket, len(markets))
	for _, m := range markets {
		labels = append(labels, m.Label)
		marketByLabel[m.Label] = m
	}

	brackets, err := ensemble.CalculateBracketProbabilities(ens.TempF, errStd, labels)
	if err != nil {
		return err
	}

	inputs := make([]scanner.BracketScanInput, 0, len(brackets))
	for _, b := range brackets {
		market, ok := marketByLabel[b.Label]
		if !ok {
			continue
		}
		inputs = append(inputs, scanner.BracketScanInput{Market: market, ModelProb: b.Probability})
	}

	confidence := ensemble.AssessConfidence(ens.Spread, errStd, len(forecasts), 0)
	signals, err := scanner.ScanAllBrackets(city, inputs, c.Settings.MinEVThreshold, string(confidence))
	if err != nil {
		return err
	}

	for _, signal := range signals {
		c.processSignal(ctx, signal, bankroll, now)
	}
	return nil
}

func (c *Cycle) processSignal(ctx context.Context, signal scanner.TradeSignal, bankroll domain.Cents, now time.Time) {
	if c.Settings.Kelly.UseKellySizing {
		kr, err := scanner.CalculateKellySize(signal.ModelProbability, signal.PriceCents, signal.Side, bankroll,
			c.Risk.MaxTradeSizeCents(), c.Settings.Kelly)
		if err != nil {
			c.log.Warn().Err(err).Msg("kelly sizing failed, skipping signal")
			return
		}
		if kr.OptimalQuantity < 1 {
			return
		}
		signal.Quantity = kr.OptimalQuantity
	} else {
		signal.Quantity = 1
	}

	ok, reason := c.Risk.CheckTrade(now, signal)
	if !ok {
		c.Metrics.IncRiskBlock(reason)
		c.log.Info().Str("city", string(signal.City)).Str("bracket", signal.BracketLabel).Str("reason", reason).Msg("signal blocked by risk manager")
		return
	}

	if err := c.Risk.ReserveExposure(now, signal); err != nil {
		c.log.Warn().Err(err).Msg("exposure reservation failed, skipping signal")
		return
	}

	tradeID, err := c.Executor.ExecuteTrade(ctx, signal)
	if err != nil {
		c.log.Warn().Err(err).Str("bracket", signal.BracketLabel).Msg("trade execution failed")
		return
	}

	c.Metrics.IncTrades(string(signal.City), string(signal.Side), "opened")
	c.log.Info().Str("trade_id", tradeID).Str("city", string(signal.City)).Str("bracket", signal.BracketLabel).
		Int("quantity", signal.Quantity).Msg("trade executed")
}
