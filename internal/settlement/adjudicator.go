// Package settlement adjudicates a trade's outcome against the settled
// actual temperature, computes realized P&L, and generates a
// human-readable postmortem narrative.
package settlement

import (
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// Trade is the minimal shape settlement needs from a stored trade row.
type Trade struct {
	ID                string
	City              domain.City
	MarketTicker      string
	BracketLabel      string
	Side              domain.Side
	PriceCents        domain.Cents
	Quantity          int
	ModelProbability  float64
	MarketProbability float64
	EVAtEntry         float64
	Confidence        string
}

// Outcome is the adjudicated result of settling a trade.
type Outcome struct {
	Won         bool
	Status      domain.Status
	CostCents   domain.Cents
	PayoutCents domain.Cents
	ProfitCents domain.Cents
	FeeCents    domain.Cents
	PnLCents    domain.Cents
	SettledAt   time.Time
}

// SettleTrade adjudicates whether trade's bracket won against
// actualHighF and computes the full P&L breakdown: on a win, payout is
// 100 cents/contract minus the taker fee; on a loss, the entire cost
// basis is lost and no fee is charged.
func SettleTrade(trade Trade, actualHighF float64, now time.Time) (Outcome, error) {
	won, err := domain.DidBracketWin(trade.BracketLabel, actualHighF, trade.Side)
	if err != nil {
		return Outcome{}, err
	}

	costCents := trade.Side.CostCents(trade.PriceCents) * domain.Cents(trade.Quantity)

	if !won {
		return Outcome{
			Won:       false,
			Status:    domain.StatusLost,
			CostCents: costCents,
			PnLCents:  -costCents,
			SettledAt: now,
		}, nil
	}

	payoutCents := domain.PayoutCents * domain.Cents(trade.Quantity)
	profitCents := payoutCents - costCents

	feePerContract, err := domain.EstimateFeeCents(trade.PriceCents, trade.Side)
	if err != nil {
		return Outcome{}, err
	}
	feeCents := feePerContract * domain.Cents(trade.Quantity)

	return Outcome{
		Won:         true,
		Status:      domain.StatusWon,
		CostCents:   costCents,
		PayoutCents: payoutCents,
		ProfitCents: profitCents,
		FeeCents:    feeCents,
		PnLCents:    profitCents - feeCents,
		SettledAt:   now,
	}, nil
}
