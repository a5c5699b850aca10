package backtest

import (
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/scanner"
	"github.com/weatherdesk/tradecore/internal/settlement"
)

// SimulatedTrade is one trade produced and settled during a backtest
// replay, carrying everything needed for per-city and Kelly reporting.
type SimulatedTrade struct {
	Day                 time.Time
	City                domain.City
	BracketLabel        string
	Side                domain.Side
	PriceCents           domain.Cents
	Quantity             int
	ModelProbability     float64
	MarketProbability    float64
	ExpectedValue        float64
	Confidence           string
	ActualTempF          float64
	Won                  bool
	PnLCents             domain.Cents
	FeesCents            domain.Cents
	BankrollAfterCents   domain.Cents
}

// Day is one simulated trading day's worth of trades and bankroll movement.
type Day struct {
	Date                time.Time
	Trades              []SimulatedTrade
	DailyPnLCents       domain.Cents
	BankrollStartCents  domain.Cents
	BankrollEndCents    domain.Cents
	TradesBlockedByRisk int
}

// Result is the full output of a backtest run, before aggregate
// metrics (win rate, Sharpe, drawdown, ...) are computed by Summarize.
type Result struct {
	Config          Config
	Days            []Day
	DurationSeconds float64
}

// Run replays predictions day by day through the live scanner and
// Kelly sizer, settling each resulting trade with settlement.ComputePnL,
// which applies the same P&L formula as live settlement's SettleTrade.
// settlements may be nil, in which case actual temperatures are
// synthesized from each prediction's own ensemble distribution. seed
// controls both price noise and synthetic settlement generation, so two
// runs with the same inputs and seed produce identical Results in every
// field except DurationSeconds, which is measured wall-clock time.
func Run(cfg Config, predictions []Prediction, settlements map[CityDay]float64, seed int64, log zerolog.Logger) (Result, error) {
	start := time.Now()
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	rng := rand.New(rand.NewSource(seed))

	filtered := filterPredictions(predictions, cfg)
	if len(filtered) == 0 {
		return Result{}, domain.NewInsufficientData("no predictions match the backtest config", map[string]any{
			"cities":            cfg.Cities,
			"start_date":        cfg.StartDate,
			"end_date":          cfg.EndDate,
			"total_predictions": len(predictions),
		})
	}

	if settlements == nil {
		settlements = generateSettlementTemps(filtered, rng)
	}

	byDay := groupPredictionsByDay(filtered)

	var kellySettings *scanner.KellySettings
	if cfg.UseKelly {
		kellySettings = &scanner.KellySettings{
			UseKellySizing:         true,
			KellyFraction:          cfg.KellyFraction,
			MaxBankrollPctPerTrade: cfg.MaxBankrollPctPerTrade,
			MaxContractsPerTrade:   cfg.MaxContractsPerTrade,
		}
	}

	risk := newRiskSimulator(cfg.InitialBankrollCents, cfg.MaxDailyTrades, cfg.ConsecutiveLossLimit)

	var days []Day
	for d := dayKey(cfg.StartDate); !d.After(dayKey(cfg.EndDate)); d = d.AddDate(0, 0, 1) {
		day := simulateDay(d, byDay[d], settlements, risk, cfg, kellySettings, rng, log)
		days = append(days, day)
		risk.advanceDay()
	}

	return Result{
		Config:          cfg,
		Days:            days,
		DurationSeconds: time.Since(start).Seconds(),
	}, nil
}

func simulateDay(
	date time.Time,
	predictions map[domain.City]Prediction,
	settlements map[CityDay]float64,
	risk *riskSimulator,
	cfg Config,
	kellySettings *scanner.KellySettings,
	rng *rand.Rand,
	log zerolog.Logger,
) Day {
	bankrollStart := risk.bankrollCents
	var trades []SimulatedTrade
	blocked := 0

	cities := make([]domain.City, 0, len(predictions))
	for c := range predictions {
		cities = append(cities, c)
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i] < cities[j] })

	for _, city := range cities {
		pred := predictions[city]
		actualTemp, ok := settlements[CityDay{city, date}]
		if !ok {
			continue
		}

		prices := generateSyntheticPrices(pred, cfg.PriceNoiseCents, rng)
		tickers := generateSyntheticTickers(pred)

		inputs := make([]scanner.BracketScanInput, 0, len(pred.Brackets))
		for _, b := range pred.Brackets {
			price, ok := prices[b.Label]
			if !ok {
				continue
			}
			inputs = append(inputs, scanner.BracketScanInput{
				Market: scanner.BracketMarket{
					Label:      b.Label,
					Ticker:     tickers[b.Label],
					PriceCents: price,
				},
				ModelProb: b.Probability,
			})
		}

		signals, err := scanner.ScanAllBrackets(city, inputs, cfg.MinEVThreshold, "")
		if err != nil {
			log.Warn().Err(err).Str("city", string(city)).Msg("backtest: scan failed for day")
			continue
		}

		for _, signal := range signals {
			if !risk.canTrade() {
				blocked++
				continue
			}

			quantity := 1
			if kellySettings != nil {
				kr, err := scanner.CalculateKellySize(signal.ModelProbability, signal.PriceCents, signal.Side,
					risk.bankrollCents, risk.maxTradeSizeCents(), *kellySettings)
				if err != nil {
					log.Warn().Err(err).Msg("backtest: kelly sizing failed")
					continue
				}
				quantity = kr.OptimalQuantity
			}
			if quantity < 1 {
				continue
			}

			trades = append(trades, executeSimulatedTrade(signal, quantity, actualTemp, risk, date))
		}
	}

	var dailyPnL domain.Cents
	for _, t := range trades {
		dailyPnL += t.PnLCents
	}

	return Day{
		Date:                date,
		Trades:              trades,
		DailyPnLCents:       dailyPnL,
		BankrollStartCents:  bankrollStart,
		BankrollEndCents:    risk.bankrollCents,
		TradesBlockedByRisk: blocked,
	}
}

func executeSimulatedTrade(signal scanner.TradeSignal, quantity int, actualTemp float64, risk *riskSimulator, day time.Time) SimulatedTrade {
	won, _ := domain.DidBracketWin(signal.BracketLabel, actualTemp, signal.Side)
	pnlCents, feeCents, _ := settlement.ComputePnL(won, signal.PriceCents, signal.Side, quantity)

	risk.recordTrade(pnlCents, won)

	return SimulatedTrade{
		Day:                day,
		City:               signal.City,
		BracketLabel:       signal.BracketLabel,
		Side:               signal.Side,
		PriceCents:         signal.PriceCents,
		Quantity:           quantity,
		ModelProbability:   signal.ModelProbability,
		MarketProbability:  signal.MarketProbability,
		ExpectedValue:      signal.ExpectedValue,
		Confidence:         signal.Confidence,
		ActualTempF:        actualTemp,
		Won:                won,
		PnLCents:           pnlCents,
		FeesCents:          feeCents,
		BankrollAfterCents: risk.bankrollCents,
	}
}
