package backtest

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
)

// Prediction is one day's modeled bracket distribution for one city,
// the unit the backtest engine replays.
type Prediction struct {
	City         domain.City
	Date         time.Time
	EnsembleMeanF float64
	EnsembleStdF  float64
	Brackets      []ensemble.BracketProbability
}

func dayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// groupPredictionsByDay indexes predictions by trading day then city,
// matching the one-prediction-per-city-per-day shape the engine walks.
func groupPredictionsByDay(predictions []Prediction) map[time.Time]map[domain.City]Prediction {
	grouped := make(map[time.Time]map[domain.City]Prediction)
	for _, p := range predictions {
		day := dayKey(p.Date)
		if grouped[day] == nil {
			grouped[day] = make(map[domain.City]Prediction)
		}
		grouped[day][p.City] = p
	}
	return grouped
}

// generateSyntheticPrices converts each bracket's modeled probability
// into an implied YES price in cents, then perturbs it with noise to
// simulate market mispricing, exactly as a live order book would.
func generateSyntheticPrices(pred Prediction, noiseCents int, rng *rand.Rand) map[string]domain.Cents {
	prices := make(map[string]domain.Cents, len(pred.Brackets))
	for _, b := range pred.Brackets {
		base := int(b.Probability * 100)
		price := base
		if noiseCents > 0 {
			price = base + (rng.Intn(2*noiseCents+1) - noiseCents)
		}
		if price < 1 {
			price = 1
		}
		if price > 99 {
			price = 99
		}
		prices[b.Label] = domain.Cents(price)
	}
	return prices
}

// generateSyntheticTickers builds deterministic per-bracket market
// tickers in the exchange's {PREFIX}-{YYMMMDD}-B{N} format.
func generateSyntheticTickers(pred Prediction) map[string]string {
	prefix := pred.City.SeriesTicker()
	if prefix == "" {
		prefix = "KXHIGH"
	}
	dateStr := strings.ToUpper(pred.Date.Format("06Jan02"))

	tickers := make(map[string]string, len(pred.Brackets))
	for i, b := range pred.Brackets {
		tickers[b.Label] = fmt.Sprintf("%s-%s-B%d", prefix, dateStr, i+1)
	}
	return tickers
}

// generateSettlementTemps synthesizes an actual high temperature for
// each prediction by sampling from its own ensemble distribution, so
// backtests without real settlement data still produce a temperature
// consistent with the model's stated uncertainty.
func generateSettlementTemps(predictions []Prediction, rng *rand.Rand) map[CityDay]float64 {
	settlements := make(map[CityDay]float64, len(predictions))
	for _, p := range predictions {
		noise := rng.NormFloat64() * p.EnsembleStdF
		temp := roundTo(p.EnsembleMeanF+noise, 1)
		settlements[CityDay{p.City, dayKey(p.Date)}] = temp
	}
	return settlements
}

// CityDay keys a settlement lookup by city and trading day, exported so
// callers can supply real settlement data loaded from storage instead
// of the synthetic generator.
type CityDay struct {
	City domain.City
	Day  time.Time
}

func roundTo(f float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	if f >= 0 {
		return float64(int64(f*scale+0.5)) / scale
	}
	return float64(int64(f*scale-0.5)) / scale
}

// filterPredictions narrows predictions to the configured cities and
// date range, returned sorted by (date, city) for deterministic replay.
func filterPredictions(predictions []Prediction, cfg Config) []Prediction {
	var out []Prediction
	for _, p := range predictions {
		if !containsCity(cfg.Cities, p.City) {
			continue
		}
		d := dayKey(p.Date)
		if d.Before(dayKey(cfg.StartDate)) || d.After(dayKey(cfg.EndDate)) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].City < out[j].City
	})
	return out
}
