package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
)

func TestCalculateEVYes(t *testing.T) {
	ev, err := CalculateEV(0.70, 60, domain.SideYes)
	require.NoError(t, err)
	// cost=0.60, profit_if_win=40, fee=max(1,int(40*.15))=6, fee_dollars=0.06
	// ev = 0.70*1.0 - 0.60 - 0.06 = 0.04
	assert.InDelta(t, 0.04, ev, 0.0001)
}

func TestCalculateEVInvalidInputs(t *testing.T) {
	_, err := CalculateEV(1.5, 60, domain.SideYes)
	assert.Error(t, err)

	_, err = CalculateEV(0.5, 0, domain.SideYes)
	assert.Error(t, err)
}

func TestScanBracketPicksBestSideTieFavorsYes(t *testing.T) {
	market := BracketMarket{Label: "53-54", Ticker: "NYC-53-54", PriceCents: 50}
	// modelProb 0.5 makes ev_yes == ev_no exactly
	sig, err := ScanBracket(domain.CityNYC, market, 0.5, -1.0, "medium")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.SideYes, sig.Side)
}

func TestScanBracketBelowThresholdReturnsNil(t *testing.T) {
	market := BracketMarket{Label: "53-54", Ticker: "NYC-53-54", PriceCents: 50}
	sig, err := ScanBracket(domain.CityNYC, market, 0.5, 0.5, "medium")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestScanAllBracketsSortsByEVDescending(t *testing.T) {
	inputs := []BracketScanInput{
		{Market: BracketMarket{Label: "<=52", Ticker: "a", PriceCents: 20}, ModelProb: 0.1},
		{Market: BracketMarket{Label: "53-54", Ticker: "b", PriceCents: 30}, ModelProb: 0.9},
		{Market: BracketMarket{Label: ">=90", Ticker: "c", PriceCents: 0}, ModelProb: 0.5}, // skipped, no price
	}
	signals, err := ScanAllBrackets(domain.CityNYC, inputs, -1.0, "high")
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.GreaterOrEqual(t, signals[0].ExpectedValue, signals[1].ExpectedValue)
}

func TestValidatePredictionsStale(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.2, 0.2, 0.2, 0.1}
	issued := time.Now().Add(-3 * time.Hour)
	err := ValidatePredictions(probs, issued, time.Now(), 2*time.Hour)
	assert.Error(t, err)
}

func TestValidatePredictionsWrongCount(t *testing.T) {
	probs := []float64{0.5, 0.5}
	err := ValidatePredictions(probs, time.Now(), time.Now(), 2*time.Hour)
	assert.Error(t, err)
}

func TestCalculateKellyFractionNoEdgeIsNonPositive(t *testing.T) {
	// very expensive contract with modest model prob: no net-positive edge
	kelly, err := CalculateKellyFraction(0.5, 98, domain.SideYes, domain.TakerFeeRate)
	require.NoError(t, err)
	assert.LessOrEqual(t, kelly, 0.0)
}

func TestCalculateKellySizeDisabledReturnsFlatOne(t *testing.T) {
	result, err := CalculateKellySize(0.8, 50, domain.SideYes, 10000, 5000, KellySettings{UseKellySizing: false})
	require.NoError(t, err)
	assert.Equal(t, 1, result.OptimalQuantity)
}

func TestCalculateKellySizeCapsAtMaxContracts(t *testing.T) {
	settings := KellySettings{
		UseKellySizing:         true,
		KellyFraction:          1.0,
		MaxBankrollPctPerTrade: 1.0,
		MaxContractsPerTrade:   3,
	}
	result, err := CalculateKellySize(0.95, 20, domain.SideYes, 1_000_000, 1_000_000, settings)
	require.NoError(t, err)
	assert.Equal(t, 3, result.OptimalQuantity)
	assert.Contains(t, result.Reasons, "capped by max_contracts_per_trade")
}

func TestCalculateKellySizeFloorsToOne(t *testing.T) {
	settings := KellySettings{
		UseKellySizing:         true,
		KellyFraction:          0.25,
		MaxBankrollPctPerTrade: 0.05,
		MaxContractsPerTrade:   10,
	}
	result, err := CalculateKellySize(0.55, 50, domain.SideYes, 100, 50, settings)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.OptimalQuantity, 1)
}

func TestWinRatePosteriorUpdateAndMean(t *testing.T) {
	p := NewWinRatePosterior()
	before := p.Mean()
	p.UpdateWithTrades(0, 20)
	after := p.Mean()
	assert.Less(t, after, before)
}
