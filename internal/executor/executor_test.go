package executor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

type fakePlacer struct {
	order *kalshi.Order
	err   error
}

func (f *fakePlacer) CreateOrder(ctx context.Context, req kalshi.OrderRequest) (*kalshi.Order, error) {
	return f.order, f.err
}

type fakeStore struct {
	inserted bool
}

func (f *fakeStore) InsertTrade(ctx context.Context, id, kalshiOrderID string, signal scanner.TradeSignal, filledCount int, now time.Time) error {
	f.inserted = true
	return nil
}

func TestExecuteTradeDryRunSkipsOrder(t *testing.T) {
	placer := &fakePlacer{order: &kalshi.Order{OrderID: "x", Status: "executed", FilledCount: 1}}
	store := &fakeStore{}
	ex := NewExecutor(placer, store, true, zerolog.Nop())

	id, err := ex.ExecuteTrade(context.Background(), scanner.TradeSignal{Ticker: "NYC-53-54", Side: domain.SideYes, Quantity: 1})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.False(t, store.inserted)
}

func TestExecuteTradeRejectsEmptyTicker(t *testing.T) {
	placer := &fakePlacer{order: &kalshi.Order{OrderID: "x", Status: "executed", FilledCount: 1}}
	store := &fakeStore{}
	ex := NewExecutor(placer, store, false, zerolog.Nop())

	_, err := ex.ExecuteTrade(context.Background(), scanner.TradeSignal{Ticker: "", Side: domain.SideYes, Quantity: 1})
	require.Error(t, err)
	var inputErr *domain.InputError
	assert.ErrorAs(t, err, &inputErr)
	assert.False(t, store.inserted)
}

func TestExecuteTradeCanceledReturnsError(t *testing.T) {
	placer := &fakePlacer{order: &kalshi.Order{OrderID: "x", Status: "canceled"}}
	store := &fakeStore{}
	ex := NewExecutor(placer, store, false, zerolog.Nop())

	_, err := ex.ExecuteTrade(context.Background(), scanner.TradeSignal{Ticker: "NYC-53-54", Side: domain.SideYes, Quantity: 1})
	assert.Error(t, err)
	assert.False(t, store.inserted)
}

func TestExecuteTradeRecordsOnSuccess(t *testing.T) {
	placer := &fakePlacer{order: &kalshi.Order{OrderID: "x", Status: "executed", FilledCount: 1}}
	store := &fakeStore{}
	ex := NewExecutor(placer, store, false, zerolog.Nop())

	id, err := ex.ExecuteTrade(context.Background(), scanner.TradeSignal{Ticker: "NYC-53-54", Side: domain.SideYes, Quantity: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, store.inserted)
}
