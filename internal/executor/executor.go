// Package executor places orders for risk-approved trade signals and
// records the resulting trade.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

// OrderPlacer is the subset of the exchange client the executor needs,
// narrowed for testability.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req kalshi.OrderRequest) (*kalshi.Order, error)
}

// TradeStore persists a newly executed trade.
type TradeStore interface {
	InsertTrade(ctx context.Context, id, kalshiOrderID string, signal scanner.TradeSignal, filledCount int, now time.Time) error
}

// Executor places orders for approved signals and records the result.
type Executor struct {
	client OrderPlacer
	store  TradeStore
	dryRun bool
	log    zerolog.Logger
}

func NewExecutor(client OrderPlacer, store TradeStore, dryRun bool, log zerolog.Logger) *Executor {
	return &Executor{client: client, store: store, dryRun: dryRun, log: log.With().Str("module", "ORDER").Logger()}
}

// ExecuteTrade places a limit order for the given signal and, unless
// the exchange cancels it outright, records an OPEN trade row. A
// "resting" order (unfilled, queued) is still recorded — the trade
// starts OPEN with whatever quantity the exchange reports filled so
// far, and later fills/cancels are reconciled separately.
func (e *Executor) ExecuteTrade(ctx context.Context, signal scanner.TradeSignal) (string, error) {
	if signal.Ticker == "" {
		return "", domain.NewInputError("trade signal has an empty ticker", nil)
	}

	if e.dryRun {
		e.log.Info().Str("ticker", signal.Ticker).Str("side", string(signal.Side)).
			Int("quantity", signal.Quantity).Msg("dry run: order not sent")
		return "", nil
	}

	req := kalshi.OrderRequest{
		Ticker:   signal.Ticker,
		Action:   "buy",
		Side:     string(signal.Side),
		Type:     "limit",
		Count:    signal.Quantity,
		YesPrice: int(signal.PriceCents),
	}

	order, err := e.client.CreateOrder(ctx, req)
	if err != nil {
		return "", err
	}

	if order.Status == "canceled" {
		return "", domain.NewOrderRejected("order canceled by exchange", map[string]any{"ticker": signal.Ticker, "order_id": order.OrderID})
	}

	if order.Status == "resting" {
		e.log.Info().Str("order_id", order.OrderID).Msg("order resting, unfilled")
	}

	tradeID := uuid.NewString()
	now := time.Now()
	if err := e.store.InsertTrade(ctx, tradeID, order.OrderID, signal, order.FilledCount, now); err != nil {
		return "", err
	}

	e.log.Info().Str("trade_id", tradeID).Str("ticker", signal.Ticker).Msg("trade recorded")
	return tradeID, nil
}
