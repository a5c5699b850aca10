// Package backtest replays historical predictions through the same
// scanner, Kelly sizing, and settlement code used in live trading, so
// strategy performance can be evaluated without touching the exchange.
package backtest

import (
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// Config controls one backtest run.
type Config struct {
	Cities                 []domain.City
	StartDate              time.Time
	EndDate                time.Time
	InitialBankrollCents   domain.Cents
	MinEVThreshold         float64
	UseKelly               bool
	KellyFraction          float64
	MaxDailyTrades         int
	ConsecutiveLossLimit   int
	MaxContractsPerTrade   int
	MaxBankrollPctPerTrade float64
	PriceNoiseCents        int
}

// DefaultConfig returns the reference defaults from the original
// backtesting harness, for callers that only want to override a few fields.
func DefaultConfig() Config {
	return Config{
		Cities:                 domain.AllCities,
		InitialBankrollCents:   100_000,
		MinEVThreshold:         0.02,
		UseKelly:               true,
		KellyFraction:          0.25,
		MaxDailyTrades:         20,
		ConsecutiveLossLimit:   5,
		MaxContractsPerTrade:   10,
		MaxBankrollPctPerTrade: 0.05,
		PriceNoiseCents:        5,
	}
}

func (c Config) validate() error {
	if len(c.Cities) == 0 {
		return domain.NewInputError("at least one city must be selected", nil)
	}
	if c.EndDate.Before(c.StartDate) {
		return domain.NewInputError("end_date must be >= start_date", map[string]any{
			"start_date": c.StartDate, "end_date": c.EndDate,
		})
	}
	if c.InitialBankrollCents < 1_000 {
		return domain.NewInputError("initial_bankroll_cents must be >= 1000", nil)
	}
	return nil
}

func containsCity(cities []domain.City, c domain.City) bool {
	for _, x := range cities {
		if x == c {
			return true
		}
	}
	return false
}
