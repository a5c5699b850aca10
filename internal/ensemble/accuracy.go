package ensemble

import (
	"context"
	"math"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// minCalibrationSamples mirrors the original system's floor on
// calibration sample size below which a Brier score is not reported.
const minCalibrationSamples = 10

// ForecastSettlementPair is one historical (forecast, actual) join used
// for per-source accuracy scoring.
type ForecastSettlementPair struct {
	Source      string
	ForecastF   float64
	ActualHighF float64
}

// SourceAccuracy is the per-source MAE/RMSE/bias summary over a
// lookback window.
type SourceAccuracy struct {
	Source      string
	SampleCount int
	MAE         float64
	RMSE        float64
	Bias        float64
}

// ComputeSourceAccuracy aggregates forecast-vs-settlement residuals per
// source into MAE, RMSE, and signed bias (positive bias means the
// source runs cold relative to actuals).
func ComputeSourceAccuracy(pairs []ForecastSettlementPair) []SourceAccuracy {
	type acc struct {
		n          int
		absSum     float64
		sqSum      float64
		signedSum  float64
	}
	bySource := make(map[string]*acc)
	var order []string

	for _, p := range pairs {
		a, ok := bySource[p.Source]
		if !ok {
			a = &acc{}
			bySource[p.Source] = a
			order = append(order, p.Source)
		}
		err := p.ActualHighF - p.ForecastF
		a.n++
		a.absSum += math.Abs(err)
		a.sqSum += err * err
		a.signedSum += err
	}

	results := make([]SourceAccuracy, 0, len(order))
	for _, src := range order {
		a := bySource[src]
		results = append(results, SourceAccuracy{
			Source:      src,
			SampleCount: a.n,
			MAE:         a.absSum / float64(a.n),
			RMSE:        math.Sqrt(a.sqSum / float64(a.n)),
			Bias:        a.signedSum / float64(a.n),
		})
	}
	return results
}

// CalibrationPrediction is one historical day's predicted bracket
// probabilities and the actual settled temperature used to score them.
type CalibrationPrediction struct {
	Brackets    []BracketProbability
	ActualHighF float64
}

// CalibrationBucket is one decile bin of predicted-vs-actual outcome
// rate, used to render a reliability diagram.
type CalibrationBucket struct {
	BinStart     float64
	BinEnd       float64
	PredictedAvg float64
	ActualRate   float64
	SampleCount  int
}

// CalibrationReport summarizes how well the ensemble's bracket
// probabilities have matched realized outcomes.
type CalibrationReport struct {
	SampleCount int
	BrierScore  *float64
	Buckets     []CalibrationBucket
	Status      string // "ok" or "insufficient_data"
}

// CheckCalibration computes the Brier score and a 10-bucket
// reliability table over a set of historical (bracket-probabilities,
// actual) pairs. Below minCalibrationSamples pairs, returns a report
// with Status "insufficient_data" and no score.
func CheckCalibration(ctx context.Context, predictions []CalibrationPrediction) CalibrationReport {
	if len(predictions) < minCalibrationSamples {
		return CalibrationReport{SampleCount: len(predictions), Status: "insufficient_data"}
	}

	var brierSum float64
	var totalPredictions int
	binPredictedSums := make([]float64, 10)
	binActualSums := make([]int, 10)
	binCounts := make([]int, 10)

	for _, pred := range predictions {
		for _, b := range pred.Brackets {
			bounds, err := domain.ParseBracketLabel(b.Label)
			if err != nil {
				continue
			}
			outcome := 0
			if bounds.Contains(pred.ActualHighF) {
				outcome = 1
			}

			diff := b.Probability - float64(outcome)
			brierSum += diff * diff
			totalPredictions++

			idx := int(b.Probability * 10)
			if idx > 9 {
				idx = 9
			}
			if idx < 0 {
				idx = 0
			}
			binPredictedSums[idx] += b.Probability
			binActualSums[idx] += outcome
			binCounts[idx]++
		}
	}

	var brier *float64
	if totalPredictions > 0 {
		v := brierSum / float64(totalPredictions)
		brier = &v
	}

	var buckets []CalibrationBucket
	for i := 0; i < 10; i++ {
		if binCounts[i] == 0 {
			continue
		}
		buckets = append(buckets, CalibrationBucket{
			BinStart:     float64(i) * 0.1,
			BinEnd:       float64(i+1) * 0.1,
			PredictedAvg: binPredictedSums[i] / float64(binCounts[i]),
			ActualRate:   float64(binActualSums[i]) / float64(binCounts[i]),
			SampleCount:  binCounts[i],
		})
	}

	return CalibrationReport{
		SampleCount: len(predictions),
		BrierScore:  brier,
		Buckets:     buckets,
		Status:      "ok",
	}
}
