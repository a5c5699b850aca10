// Package scanner turns modeled bracket probabilities and market
// prices into expected-value signals and Kelly-sized positions.
package scanner

import (
	"fmt"
	"sort"
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// TradeSignal is a candidate trade surfaced by the scanner: a bracket
// with positive expected value on one side, sized for risk review.
type TradeSignal struct {
	City               domain.City
	BracketLabel       string
	Ticker             string
	Side               domain.Side
	PriceCents         domain.Cents
	ModelProbability   float64
	MarketProbability  float64
	ExpectedValue      float64
	Quantity           int
	Confidence         string
	Reasoning          string
	GeneratedAt        time.Time
}

// EstimateFeeCents is re-exported for callers that only import scanner;
// the canonical fee formula lives in domain.
func EstimateFeeCents(priceCents domain.Cents, side domain.Side) (domain.Cents, error) {
	return domain.EstimateFeeCents(priceCents, side)
}

// CalculateEV computes the expected value in dollars of buying one
// contract of the given side at priceCents, given the model's
// probability that the bracket settles YES.
func CalculateEV(modelProb float64, priceCents domain.Cents, side domain.Side) (float64, error) {
	if err := domain.ValidateProbability(domain.Probability(modelProb)); err != nil {
		return 0, err
	}
	if err := domain.ValidatePriceCents(priceCents); err != nil {
		return 0, err
	}
	if !side.Valid() {
		return 0, domain.NewInputError("side must be yes or no", map[string]any{"side": side})
	}

	var probWin, costDollars float64
	if side == domain.SideYes {
		probWin = modelProb
		costDollars = float64(priceCents) / 100.0
	} else {
		probWin = 1 - modelProb
		costDollars = float64(100-priceCents) / 100.0
	}

	feeCents, err := domain.EstimateFeeCents(priceCents, side)
	if err != nil {
		return 0, err
	}
	feeDollars := float64(feeCents) / 100.0

	ev := probWin*1.00 - costDollars - feeDollars
	return round4(ev), nil
}

func round4(f float64) float64 {
	const scale = 10000.0
	if f >= 0 {
		return float64(int64(f*scale+0.5)) / scale
	}
	return float64(int64(f*scale-0.5)) / scale
}

// BracketMarket is the current market snapshot for one bracket: the
// YES price in cents (the feed takes the best YES bid, else the ask,
// the cached price or the last trade).
type BracketMarket struct {
	Label      string
	Ticker     string
	PriceCents domain.Cents
}

// ScanBracket evaluates both sides of a single bracket and returns the
// best side's signal if it clears minEVThreshold; ties between yes and
// no favor yes.
func ScanBracket(city domain.City, market BracketMarket, modelProb float64, minEVThreshold float64, confidence string) (*TradeSignal, error) {
	if err := domain.ValidatePriceCents(market.PriceCents); err != nil {
		return nil, err
	}

	evYes, err := CalculateEV(modelProb, market.PriceCents, domain.SideYes)
	if err != nil {
		return nil, err
	}
	evNo, err := CalculateEV(modelProb, market.PriceCents, domain.SideNo)
	if err != nil {
		return nil, err
	}

	side := domain.SideNo
	ev := evNo
	if evYes >= evNo {
		side = domain.SideYes
		ev = evYes
	}

	if ev < minEVThreshold {
		return nil, nil
	}

	marketProb := float64(market.PriceCents) / 100.0
	if side == domain.SideNo {
		marketProb = 1 - marketProb
	}

	return &TradeSignal{
		City:              city,
		BracketLabel:      market.Label,
		Ticker:            market.Ticker,
		Side:              side,
		PriceCents:        market.PriceCents,
		ModelProbability:  modelProb,
		MarketProbability: marketProb,
		ExpectedValue:      ev,
		Confidence:        confidence,
		Reasoning:         generateSignalReasoning(side, modelProb, marketProb, ev),
		GeneratedAt:       time.Now(),
	}, nil
}

func generateSignalReasoning(side domain.Side, modelProb, marketProb, ev float64) string {
	return fmt.Sprintf("model %.1f%% vs market %.1f%% on %s side, ev=%.4f", modelProb*100, marketProb*100, side, ev)
}

// BracketScanInput pairs a bracket's market snapshot with the model's
// probability for it, as produced by the ensemble engine.
type BracketScanInput struct {
	Market      BracketMarket
	ModelProb   float64
}

// ScanAllBrackets evaluates every bracket for a city and returns the
// signals clearing the EV threshold, sorted by expected value
// descending. Brackets missing a price are skipped with no error.
func ScanAllBrackets(city domain.City, inputs []BracketScanInput, minEVThreshold float64, confidence string) ([]TradeSignal, error) {
	var signals []TradeSignal
	for _, in := range inputs {
		if in.Market.PriceCents == 0 {
			continue
		}
		sig, err := ScanBracket(city, in.Market, in.ModelProb, minEVThreshold, confidence)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			signals = append(signals, *sig)
		}
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].ExpectedValue > signals[j].ExpectedValue
	})
	return signals, nil
}

// ValidatePredictions checks that the modeled probabilities for a
// city's brackets sum close to 1.0, contain no invalid values, cover
// exactly six brackets, and are fresh.
func ValidatePredictions(probs []float64, issuedAt time.Time, now time.Time, maxAge time.Duration) error {
	if len(probs) != 6 {
		return domain.NewInputError(fmt.Sprintf("expected 6 brackets, got %d", len(probs)), nil)
	}
	var sum float64
	for _, p := range probs {
		if err := domain.ValidateProbability(domain.Probability(p)); err != nil {
			return err
		}
		sum += p
	}
	if sum < 0.95 || sum > 1.05 {
		return domain.NewInputError(fmt.Sprintf("bracket probabilities sum to %.4f, expected ~1.0", sum), nil)
	}
	if now.Sub(issuedAt) > maxAge {
		return domain.NewStaleDataError("predictions are stale", map[string]any{"age": now.Sub(issuedAt).String()})
	}
	return nil
}

// ValidateMarketPrices checks every bracket price is an integer cents
// value in [1, 99].
func ValidateMarketPrices(prices []domain.Cents) error {
	for _, p := range prices {
		if err := domain.ValidatePriceCents(p); err != nil {
			return err
		}
	}
	return nil
}
