package backtest

import "github.com/weatherdesk/tradecore/internal/domain"

// riskSimulator is a lightweight, entirely in-memory stand-in for the
// live risk.Manager: bankroll, daily trade count, and consecutive
// losses, with no database or mutex involved since a backtest replay
// is single-threaded by construction.
type riskSimulator struct {
	bankrollCents        domain.Cents
	maxDailyTrades       int
	consecutiveLossLimit int

	dailyTradeCount   int
	consecutiveLosses int
	totalTrades       int
	totalBlocked      int
	peakBankroll      domain.Cents
}

func newRiskSimulator(initialBankrollCents domain.Cents, maxDailyTrades, consecutiveLossLimit int) *riskSimulator {
	return &riskSimulator{
		bankrollCents:        initialBankrollCents,
		maxDailyTrades:       maxDailyTrades,
		consecutiveLossLimit: consecutiveLossLimit,
		peakBankroll:         initialBankrollCents,
	}
}

// canTrade reports whether another trade is allowed under the bankroll,
// daily-trade-count, and consecutive-loss limits.
func (r *riskSimulator) canTrade() bool {
	if r.bankrollCents <= 0 {
		r.totalBlocked++
		return false
	}
	if r.dailyTradeCount >= r.maxDailyTrades {
		r.totalBlocked++
		return false
	}
	if r.consecutiveLosses >= r.consecutiveLossLimit {
		r.totalBlocked++
		return false
	}
	return true
}

// recordTrade applies a simulated trade's P&L to the bankroll and
// updates the consecutive-loss streak.
func (r *riskSimulator) recordTrade(pnlCents domain.Cents, won bool) {
	r.bankrollCents += pnlCents
	r.dailyTradeCount++
	r.totalTrades++

	if won {
		r.consecutiveLosses = 0
	} else {
		r.consecutiveLosses++
	}

	if r.bankrollCents > r.peakBankroll {
		r.peakBankroll = r.bankrollCents
	}
}

// advanceDay resets daily counters. Consecutive losses intentionally
// persist across days: a losing streak that spans midnight should
// still trip the cooldown the next morning.
func (r *riskSimulator) advanceDay() {
	r.dailyTradeCount = 0
}

// maxTradeSizeCents caps any single trade at 10% of current bankroll,
// with a 100-cent floor, so one position can never alone wipe the account.
func (r *riskSimulator) maxTradeSizeCents() domain.Cents {
	tradeCap := r.bankrollCents / 10
	if tradeCap < 100 {
		tradeCap = 100
	}
	return tradeCap
}
