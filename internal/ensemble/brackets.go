package ensemble

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// BracketProbability is the modeled probability that a single bracket
// wins, alongside its label for downstream joins against market prices.
type BracketProbability struct {
	Label       string
	Probability float64
}

// CalculateBracketProbabilities converts an ensemble forecast and its
// error standard deviation into a probability for each bracket label,
// via the normal CDF, then clamps each to [0, 1] and renormalizes the
// set to sum to exactly 1.0.
func CalculateBracketProbabilities(ensembleTempF, errorStdF float64, labels []string) ([]BracketProbability, error) {
	if errorStdF <= 0 {
		return nil, domain.NewInputError("error_std must be positive", map[string]any{"error_std": errorStdF})
	}
	if len(labels) == 0 {
		return nil, domain.NewInputError("no bracket labels supplied", nil)
	}

	dist := distuv.Normal{Mu: ensembleTempF, Sigma: errorStdF}

	results := make([]BracketProbability, 0, len(labels))
	var total float64
	for _, label := range labels {
		bounds, err := domain.ParseBracketLabel(label)
		if err != nil {
			return nil, err
		}

		var p float64
		switch {
		case bounds.Bottom:
			p = dist.CDF(bounds.Upper)
		case bounds.Top:
			p = 1 - dist.CDF(bounds.Lower)
		default:
			p = dist.CDF(bounds.Upper) - dist.CDF(bounds.Lower)
		}

		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		total += p
		results = append(results, BracketProbability{Label: label, Probability: p})
	}

	if total > 0 {
		for i := range results {
			results[i].Probability /= total
		}
	}

	return results, nil
}
