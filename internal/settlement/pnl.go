package settlement

import "github.com/weatherdesk/tradecore/internal/domain"

// ComputePnL computes realized P&L cents for a single position given
// its outcome, independent of trade/Outcome bookkeeping. The backtest
// simulator uses it; live settlement goes through SettleTrade, which
// applies the same formula.
func ComputePnL(won bool, priceCents domain.Cents, side domain.Side, quantity int) (pnlCents, feeCents domain.Cents, err error) {
	costCents := side.CostCents(priceCents) * domain.Cents(quantity)

	if !won {
		return -costCents, 0, nil
	}

	payoutCents := domain.PayoutCents * domain.Cents(quantity)
	profitCents := payoutCents - costCents

	feePerContract, err := domain.EstimateFeeCents(priceCents, side)
	if err != nil {
		return 0, 0, err
	}
	feeCents = feePerContract * domain.Cents(quantity)

	return profitCents - feeCents, feeCents, nil
}
