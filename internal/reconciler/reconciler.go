// Package reconciler cross-checks the exchange's reported positions
// against locally stored open trades when the reconcile command runs,
// surfacing drift rather than silently trusting either source.
package reconciler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// ExchangePosition is the exchange's view of a held position.
type ExchangePosition struct {
	Ticker   string
	Position int // positive=YES contracts, negative=NO contracts
}

// LocalTrade is the minimal shape reconciler needs from a stored OPEN trade.
type LocalTrade struct {
	ID       string
	Ticker   string
	Side     domain.Side
	Quantity int
}

// Discrepancy describes one ticker where the exchange and local
// storage disagree on held quantity.
type Discrepancy struct {
	Ticker         string
	ExchangeQty    int
	LocalQty       int
	LocalTradeIDs  []string
}

// Reconciler compares exchange positions against locally tracked open
// trades.
type Reconciler struct {
	log zerolog.Logger
}

func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{log: log.With().Str("module", "TRADING").Logger()}
}

// localSignedQty converts a local trade's side+quantity into the same
// signed convention the exchange uses: positive for YES, negative for NO.
func localSignedQty(t LocalTrade) int {
	if t.Side == domain.SideYes {
		return t.Quantity
	}
	return -t.Quantity
}

// Reconcile compares exchange positions with local open trades and
// returns every ticker whose signed quantities disagree.
func (r *Reconciler) Reconcile(ctx context.Context, exchangePositions []ExchangePosition, localTrades []LocalTrade) []Discrepancy {
	localByTicker := make(map[string][]LocalTrade)
	for _, t := range localTrades {
		localByTicker[t.Ticker] = append(localByTicker[t.Ticker], t)
	}

	exchangeByTicker := make(map[string]int)
	for _, p := range exchangePositions {
		exchangeByTicker[p.Ticker] = p.Position
	}

	seen := make(map[string]bool)
	var discrepancies []Discrepancy

	for ticker, trades := range localByTicker {
		seen[ticker] = true
		localQty := 0
		ids := make([]string, 0, len(trades))
		for _, t := range trades {
			localQty += localSignedQty(t)
			ids = append(ids, t.ID)
		}
		exchangeQty := exchangeByTicker[ticker]
		if exchangeQty != localQty {
			discrepancies = append(discrepancies, Discrepancy{
				Ticker: ticker, ExchangeQty: exchangeQty, LocalQty: localQty, LocalTradeIDs: ids,
			})
		}
	}

	for ticker, qty := range exchangeByTicker {
		if !seen[ticker] && qty != 0 {
			discrepancies = append(discrepancies, Discrepancy{Ticker: ticker, ExchangeQty: qty, LocalQty: 0})
		}
	}

	if len(discrepancies) > 0 {
		r.log.Warn().Int("count", len(discrepancies)).Msg("position reconciliation found discrepancies")
	}

	return discrepancies
}

// ReconstructEntry infers the side and per-contract price basis of an
// exchange-reported position that has no matching local trade (e.g.
// after a crash that lost in-flight state), from the exchange's signed
// position and reported market exposure in cents.
func ReconstructEntry(position int, marketExposureCents int) (domain.Side, domain.Cents, int, error) {
	if position == 0 {
		return "", 0, 0, domain.NewInputError("cannot reconstruct entry for zero position", nil)
	}

	side := domain.SideYes
	qty := position
	if position < 0 {
		side = domain.SideNo
		qty = -position
	}

	if qty == 0 {
		return "", 0, 0, domain.NewInputError("zero quantity after sign normalization", nil)
	}

	avgCostCents := domain.Cents(marketExposureCents / qty)
	return side, avgCostCents, qty, nil
}
