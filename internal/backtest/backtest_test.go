package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
	"github.com/weatherdesk/tradecore/internal/logging"
)

func testPrediction(city domain.City, date time.Time) Prediction {
	return Prediction{
		City:          city,
		Date:          date,
		EnsembleMeanF: 60,
		EnsembleStdF:  2,
		Brackets: []ensemble.BracketProbability{
			{Label: "<=55", Probability: 0.10},
			{Label: "56-58", Probability: 0.15},
			{Label: "59-61", Probability: 0.50},
			{Label: "62-64", Probability: 0.15},
			{Label: ">=65", Probability: 0.10},
		},
	}
}

func testConfig(start, end time.Time) Config {
	cfg := DefaultConfig()
	cfg.Cities = []domain.City{domain.CityNYC}
	cfg.StartDate = start
	cfg.EndDate = end
	return cfg
}

func TestRunInsufficientData(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig(start, start)
	_, err := Run(cfg, nil, nil, 1, logging.Init(false, nil))
	assert.Error(t, err)
}

func TestRunDeterministicWithSameSeed(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 9)
	cfg := testConfig(start, end)

	var predictions []Prediction
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		predictions = append(predictions, testPrediction(domain.CityNYC, d))
	}

	log := logging.Init(false, nil)
	r1, err := Run(cfg, predictions, nil, 42, log)
	require.NoError(t, err)
	r2, err := Run(cfg, predictions, nil, 42, log)
	require.NoError(t, err)

	s1 := Summarize(r1)
	s2 := Summarize(r2)
	assert.Equal(t, s1.TotalTrades, s2.TotalTrades)
	assert.Equal(t, s1.TotalPnLCents, s2.TotalPnLCents)
	assert.Equal(t, s1.WinRate, s2.WinRate)

	for i := range r1.Days {
		require.Len(t, r2.Days, len(r1.Days))
		assert.Equal(t, r1.Days[i].DailyPnLCents, r2.Days[i].DailyPnLCents)
	}
}

func TestRunProducesTradesAndSummary(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 29)
	cfg := testConfig(start, end)
	cfg.MinEVThreshold = 0.0

	var predictions []Prediction
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		predictions = append(predictions, testPrediction(domain.CityNYC, d))
	}

	log := logging.Init(false, nil)
	result, err := Run(cfg, predictions, nil, 7, log)
	require.NoError(t, err)
	assert.Len(t, result.Days, 30)

	summary := Summarize(result)
	assert.Equal(t, 30, summary.TotalDaysSimulated)
	assert.GreaterOrEqual(t, summary.TotalTrades, 0)
	if summary.TotalTrades > 0 {
		assert.Contains(t, summary.PerCityStats, "NYC")
		require.NotNil(t, summary.KellyStats)
	}
}

func TestRunKellyDisabledUsesFlatQuantity(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)
	cfg := testConfig(start, end)
	cfg.UseKelly = false
	cfg.MinEVThreshold = 0.0

	var predictions []Prediction
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		predictions = append(predictions, testPrediction(domain.CityNYC, d))
	}

	log := logging.Init(false, nil)
	result, err := Run(cfg, predictions, nil, 3, log)
	require.NoError(t, err)

	summary := Summarize(result)
	assert.Nil(t, summary.KellyStats)
	for _, d := range result.Days {
		for _, trade := range d.Trades {
			assert.Equal(t, 1, trade.Quantity)
		}
	}
}
