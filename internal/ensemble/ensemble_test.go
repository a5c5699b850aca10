package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
)

func TestCalculateEnsembleForecastWeighted(t *testing.T) {
	forecasts := []Forecast{
		{Source: "NWS", TempF: 50},
		{Source: "Open-Meteo:ECMWF", TempF: 52},
		{Source: "Open-Meteo:GFS", TempF: 48},
	}
	result, err := CalculateEnsembleForecast(forecasts, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, result.Spread, 0.001)
	// weighted mean: (50*.35 + 52*.30 + 48*.20) / (.35+.30+.20)
	expected := (50*0.35 + 52*0.30 + 48*0.20) / 0.85
	assert.InDelta(t, expected, result.TempF, 0.001)
}

func TestCalculateEnsembleForecastEmpty(t *testing.T) {
	_, err := CalculateEnsembleForecast(nil, nil)
	assert.Error(t, err)
}

func TestCalculateEnsembleForecastUnknownSource(t *testing.T) {
	forecasts := []Forecast{
		{Source: "SomeNewModel", TempF: 60},
	}
	result, err := CalculateEnsembleForecast(forecasts, nil)
	require.NoError(t, err)
	assert.InDelta(t, 60, result.TempF, 0.001)
}

func TestAssessConfidenceHigh(t *testing.T) {
	c := AssessConfidence(0.5, 1.0, 5, 30)
	assert.Equal(t, ConfidenceHigh, c)
}

func TestAssessConfidenceLow(t *testing.T) {
	c := AssessConfidence(5.0, 5.0, 1, 200)
	assert.Equal(t, ConfidenceLow, c)
}

func TestCalculateBracketProbabilitiesSumToOne(t *testing.T) {
	labels := []string{"<=52", "53-54", "55-56", "57-58", "59-60", ">=61"}
	probs, err := CalculateBracketProbabilities(55, 2.0, labels)
	require.NoError(t, err)

	var total float64
	for _, p := range probs {
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		assert.LessOrEqual(t, p.Probability, 1.0)
		total += p.Probability
	}
	assert.InDelta(t, 1.0, total, 0.0001)
}

func TestCalculateBracketProbabilitiesInvalidStd(t *testing.T) {
	_, err := CalculateBracketProbabilities(55, 0, []string{"<=52"})
	assert.Error(t, err)
}

func TestCalculateErrorStdFallback(t *testing.T) {
	std, err := CalculateErrorStd(nil, nil, domain.CityNYC, 1) // January -> winter
	require.NoError(t, err)
	assert.Equal(t, 3.0, std)
}

func TestCalculateErrorStdUnknownCityDefault(t *testing.T) {
	std, err := CalculateErrorStd(nil, nil, domain.City("ZZZ"), 1)
	require.NoError(t, err)
	assert.Equal(t, defaultFallbackErrorStd, std)
}

func TestComputeSourceAccuracy(t *testing.T) {
	pairs := []ForecastSettlementPair{
		{Source: "NWS", ForecastF: 50, ActualHighF: 52},
		{Source: "NWS", ForecastF: 48, ActualHighF: 47},
	}
	results := ComputeSourceAccuracy(pairs)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].SampleCount)
	assert.InDelta(t, 1.5, results[0].MAE, 0.001)
}

func TestCheckCalibrationInsufficientData(t *testing.T) {
	report := CheckCalibration(nil, nil)
	assert.Equal(t, "insufficient_data", report.Status)
	assert.Nil(t, report.BrierScore)
}

func TestCheckCalibrationComputesScore(t *testing.T) {
	preds := make([]CalibrationPrediction, 0, minCalibrationSamples)
	for i := 0; i < minCalibrationSamples; i++ {
		preds = append(preds, CalibrationPrediction{
			Brackets:    []BracketProbability{{Label: "<=52", Probability: 0.3}},
			ActualHighF: 50,
		})
	}
	report := CheckCalibration(nil, preds)
	require.Equal(t, "ok", report.Status)
	require.NotNil(t, report.BrierScore)
	assert.InDelta(t, 0.49, *report.BrierScore, 0.001)
}
