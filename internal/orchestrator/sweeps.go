package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/logging"
	"github.com/weatherdesk/tradecore/internal/metrics"
	"github.com/weatherdesk/tradecore/internal/queue"
	"github.com/weatherdesk/tradecore/internal/risk"
	"github.com/weatherdesk/tradecore/internal/settlement"
)

// OpenTrade is the minimal shape the settlement sweep needs from a
// stored trade row, decoupled from the storage package's gorm model.
type OpenTrade struct {
	ID           string
	City         domain.City
	BracketLabel string
	Side         domain.Side
	PriceCents   domain.Cents
	Quantity     int
	TradeDate    time.Time
}

// SettlementStore is the persistence surface the settlement sweep
// needs: the set of still-open trades, the settled actual temperature
// for a city/date once the underlying market has a result, and a way
// to record the adjudicated outcome back onto the trade row.
type SettlementStore interface {
	OpenTradesForSettlement(ctx context.Context) ([]OpenTrade, error)
	ActualHighF(ctx context.Context, city domain.City, date time.Time) (float64, bool, error)
	SettleTrade(ctx context.Context, tradeID string, status domain.Status, pnlCents, feeCents domain.Cents, settledAt time.Time) error
}

// SettlementSweep polls for trades whose market has settled and
// adjudicates each one through the same settlement.SettleTrade logic
// used everywhere else, then folds the outcome into the risk manager's
// cooldown/daily-P&L state.
type SettlementSweep struct {
	Store   SettlementStore
	Risk    *risk.Manager
	Metrics metrics.Sink
	log     zerolog.Logger
}

func NewSettlementSweep(store SettlementStore, riskMgr *risk.Manager, sink metrics.Sink, log zerolog.Logger) *SettlementSweep {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &SettlementSweep{Store: store, Risk: riskMgr, Metrics: sink, log: logging.For(log, logging.TagSettle)}
}

// Run settles every open trade whose actual high temperature is now
// known, returning how many were settled.
func (s *SettlementSweep) Run(ctx context.Context, now time.Time) (int, error) {
	open, err := s.Store.OpenTradesForSettlement(ctx)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, trade := range open {
		actualHighF, ok, err := s.Store.ActualHighF(ctx, trade.City, trade.TradeDate)
		if err != nil {
			s.log.Warn().Err(err).Str("trade_id", trade.ID).Msg("settlement lookup failed")
			continue
		}
		if !ok {
			continue
		}

		outcome, err := settlement.SettleTrade(settlement.Trade{
			ID:           trade.ID,
			City:         trade.City,
			BracketLabel: trade.BracketLabel,
			Side:         trade.Side,
			PriceCents:   trade.PriceCents,
			Quantity:     trade.Quantity,
		}, actualHighF, now)
		if err != nil {
			s.log.Warn().Err(err).Str("trade_id", trade.ID).Msg("adjudication failed")
			continue
		}

		if err := s.Store.SettleTrade(ctx, trade.ID, outcome.Status, outcome.PnLCents, outcome.FeeCents, outcome.SettledAt); err != nil {
			s.log.Warn().Err(err).Str("trade_id", trade.ID).Msg("failed to persist settlement")
			continue
		}

		s.Risk.RecordSettlement(now, outcome.PnLCents, outcome.Won)

		outcomeLabel := "loss"
		if outcome.Won {
			outcomeLabel = "win"
		}
		s.Metrics.IncTrades(string(trade.City), string(trade.Side), outcomeLabel)
		settled++
	}

	return settled, nil
}

// PendingTradeStore is the persistence surface the TTL sweep needs.
type PendingTradeStore interface {
	PendingTrades(ctx context.Context) ([]*queue.PendingTrade, error)
	UpdatePendingTrade(ctx context.Context, trade *queue.PendingTrade) error
}

// PendingTradeSweep expires any queued trade still awaiting approval
// past its TTL, mirroring the original system's periodic
// expire_stale_trades pass.
type PendingTradeSweep struct {
	Store PendingTradeStore
	log   zerolog.Logger
}

func NewPendingTradeSweep(store PendingTradeStore, log zerolog.Logger) *PendingTradeSweep {
	return &PendingTradeSweep{Store: store, log: logging.For(log, logging.TagTrading)}
}

// Run expires stale pending trades and persists each change, returning
// how many were expired.
func (p *PendingTradeSweep) Run(ctx context.Context, now time.Time) (int, error) {
	trades, err := p.Store.PendingTrades(ctx)
	if err != nil {
		return 0, err
	}

	wasPending := make(map[string]bool, len(trades))
	for _, t := range trades {
		wasPending[t.ID] = t.Status == domain.PendingStatusPending
	}

	expired := queue.ExpireStaleTrades(trades, now)
	if expired == 0 {
		return 0, nil
	}

	for _, t := range trades {
		if !wasPending[t.ID] || t.Status != domain.PendingStatusExpired {
			continue
		}
		if err := p.Store.UpdatePendingTrade(ctx, t); err != nil {
			p.log.Warn().Err(err).Str("trade_id", t.ID).Msg("failed to persist expired pending trade")
		}
	}

	return expired, nil
}
