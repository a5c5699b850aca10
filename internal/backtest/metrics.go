package backtest

import (
	"math"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// CityStats aggregates trade outcomes for one city across a backtest run.
type CityStats struct {
	City        string
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64
	TotalPnLCents int
	AvgEV       float64
}

// KellyStats summarizes how fractional-Kelly sizing performed relative
// to a flat one-contract-per-trade baseline.
type KellyStats struct {
	AvgQuantity  float64
	MaxQuantity  int
	PnLVsFlatCents int
	AvgEdgeCents float64
}

// Summary is the full set of aggregate statistics computed from a Result.
type Summary struct {
	TotalTrades        int
	Wins               int
	Losses             int
	WinRate            float64
	TotalPnLCents      int
	ROIPercent         float64
	SharpeRatio        float64
	MaxDrawdownPercent float64
	PerCityStats       map[string]CityStats
	KellyStats         *KellyStats
	TotalDaysSimulated int
	DaysWithTrades     int
}

// Summarize computes win rate, ROI, Sharpe, drawdown, and per-city and
// Kelly-effectiveness statistics from a completed Result.
func Summarize(result Result) Summary {
	var allTrades []SimulatedTrade
	for _, d := range result.Days {
		allTrades = append(allTrades, d.Trades...)
	}

	daysWithTrades := 0
	for _, d := range result.Days {
		if len(d.Trades) > 0 {
			daysWithTrades++
		}
	}

	wins := 0
	var totalPnL int64
	for _, t := range allTrades {
		if t.Won {
			wins++
		}
		totalPnL += int64(t.PnLCents)
	}

	winRate := 0.0
	if len(allTrades) > 0 {
		winRate = float64(wins) / float64(len(allTrades))
	}

	summary := Summary{
		TotalTrades:        len(allTrades),
		Wins:               wins,
		Losses:             len(allTrades) - wins,
		WinRate:            winRate,
		TotalPnLCents:      int(totalPnL),
		ROIPercent:         computeROI(totalPnL, result.Config.InitialBankrollCents),
		SharpeRatio:        computeSharpe(result),
		MaxDrawdownPercent: computeMaxDrawdown(result),
		PerCityStats:       computePerCityStats(allTrades),
		TotalDaysSimulated: len(result.Days),
		DaysWithTrades:     daysWithTrades,
	}

	if result.Config.UseKelly {
		ks := computeKellyStats(allTrades)
		summary.KellyStats = &ks
	}

	return summary
}

func computeROI(totalPnLCents int64, initialBankrollCents domain.Cents) float64 {
	if initialBankrollCents <= 0 {
		return 0
	}
	return roundTo(float64(totalPnLCents)/float64(initialBankrollCents)*100, 2)
}

func computeSharpe(result Result) float64 {
	if len(result.Days) < 2 || result.Config.InitialBankrollCents == 0 {
		return 0
	}

	returns := make([]float64, len(result.Days))
	for i, d := range result.Days {
		returns[i] = float64(d.DailyPnLCents) / float64(result.Config.InitialBankrollCents)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)

	if std < 1e-12 {
		return 0
	}
	return roundTo((mean/std)*math.Sqrt(252), 4)
}

func computeMaxDrawdown(result Result) float64 {
	if len(result.Days) == 0 {
		return 0
	}

	peak := result.Config.InitialBankrollCents
	maxDD := 0.0
	for _, d := range result.Days {
		if d.BankrollEndCents > peak {
			peak = d.BankrollEndCents
		}
		if peak > 0 {
			dd := float64(peak-d.BankrollEndCents) / float64(peak) * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return roundTo(maxDD, 2)
}

func computePerCityStats(trades []SimulatedTrade) map[string]CityStats {
	byCity := make(map[string][]SimulatedTrade)
	for _, t := range trades {
		byCity[string(t.City)] = append(byCity[string(t.City)], t)
	}

	stats := make(map[string]CityStats, len(byCity))
	for city, cityTrades := range byCity {
		wins := 0
		var pnl int64
		var evTotal float64
		for _, t := range cityTrades {
			if t.Won {
				wins++
			}
			pnl += int64(t.PnLCents)
			evTotal += t.ExpectedValue
		}
		total := len(cityTrades)
		avgEV := 0.0
		if total > 0 {
			avgEV = evTotal / float64(total)
		}
		stats[city] = CityStats{
			City:          city,
			TotalTrades:   total,
			Wins:          wins,
			Losses:        total - wins,
			WinRate:       roundTo(float64(wins)/float64(total), 4),
			TotalPnLCents: int(pnl),
			AvgEV:         roundTo(avgEV, 4),
		}
	}
	return stats
}

func computeKellyStats(trades []SimulatedTrade) KellyStats {
	if len(trades) == 0 {
		return KellyStats{}
	}

	var qtySum, maxQty int
	for _, t := range trades {
		qtySum += t.Quantity
		if t.Quantity > maxQty {
			maxQty = t.Quantity
		}
	}
	avgQty := float64(qtySum) / float64(len(trades))

	var flatPnL int64
	for _, t := range trades {
		cost := t.Side.CostCents(t.PriceCents)
		if t.Won {
			profit := domain.PayoutCents - cost
			fee, err := domain.EstimateFeeCents(t.PriceCents, t.Side)
			if err != nil {
				continue
			}
			flatPnL += int64(profit - fee)
		} else {
			flatPnL -= int64(cost)
		}
	}

	var actualPnL int64
	for _, t := range trades {
		actualPnL += int64(t.PnLCents)
	}

	return KellyStats{
		AvgQuantity:    roundTo(avgQty, 2),
		MaxQuantity:    maxQty,
		PnLVsFlatCents: int(actualPnL - flatPnL),
	}
}
