package settlement

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ForecastPoint is one source's forecast-vs-actual comparison line,
// used to explain which models were closest to the settled temperature.
type ForecastPoint struct {
	Source    string
	ForecastF float64
}

// GeneratePostmortemNarrative renders a multi-section, human-readable
// explanation of a settled trade: what was traded, what happened, why
// the trade was taken, and the outcome, with the four forecast sources
// closest to the actual temperature called out by name, each with its
// signed deviation (forecast minus actual).
func GeneratePostmortemNarrative(trade Trade, outcome Outcome, actualHighF float64, forecasts []ForecastPoint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "WHAT WE TRADED\n")
	fmt.Fprintf(&b, "  %s %s %s @ %d cents x%d\n\n", trade.City, trade.Side, trade.BracketLabel, trade.PriceCents, trade.Quantity)

	fmt.Fprintf(&b, "WHAT HAPPENED\n")
	fmt.Fprintf(&b, "  Actual high: %.1fF\n", actualHighF)

	sorted := make([]ForecastPoint, len(forecasts))
	copy(sorted, forecasts)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].ForecastF-actualHighF) < math.Abs(sorted[j].ForecastF-actualHighF)
	})
	top := sorted
	if len(top) > 4 {
		top = top[:4]
	}
	for _, f := range top {
		fmt.Fprintf(&b, "  %s forecast %.1fF (%+.1fF vs actual)\n", f.Source, f.ForecastF, f.ForecastF-actualHighF)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "WHY WE TOOK THIS TRADE\n")
	edgePct := (trade.ModelProbability - trade.MarketProbability) * 100
	fmt.Fprintf(&b, "  model %.1f%% vs market %.1f%% (edge %.1f pp), ev=%.4f, confidence=%s\n\n",
		trade.ModelProbability*100, trade.MarketProbability*100, edgePct, trade.EVAtEntry, trade.Confidence)

	fmt.Fprintf(&b, "OUTCOME ANALYSIS\n")
	if outcome.Won {
		fmt.Fprintf(&b, "  WIN (+$%.2f)\n", float64(outcome.PnLCents)/100)
		fmt.Fprintf(&b, "  Bracket hit as predicted; model's probability edge over the market held.\n")
	} else {
		fmt.Fprintf(&b, "  LOSS (-$%.2f)\n", float64(-outcome.PnLCents)/100)
		fmt.Fprintf(&b, "  Actual temperature settled outside the traded bracket.\n")
	}

	return b.String()
}
