package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weatherdesk/tradecore/internal/config"
	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/logging"
	"github.com/weatherdesk/tradecore/internal/reconciler"
	"github.com/weatherdesk/tradecore/internal/storage"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Cross-check exchange-reported positions against locally stored open trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context())
		},
	}
}

func runReconcile(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.Init(cfg.Debug, nil)

	client, err := kalshi.NewClient(cfg, logging.For(log, logging.TagAuth))
	if err != nil {
		return fmt.Errorf("kalshi client: %w", err)
	}

	db, err := storage.Open(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	repo := storage.NewRepository(db)

	positions, err := client.GetPositions(ctx, "")
	if err != nil {
		return fmt.Errorf("fetching exchange positions: %w", err)
	}
	exchangePositions := make([]reconciler.ExchangePosition, 0, len(positions))
	for _, p := range positions {
		exchangePositions = append(exchangePositions, reconciler.ExchangePosition{
			Ticker: p.Ticker, Position: p.Position,
		})
	}

	openTrades, err := repo.OpenTrades(ctx)
	if err != nil {
		return fmt.Errorf("loading open trades: %w", err)
	}
	localTrades := make([]reconciler.LocalTrade, 0, len(openTrades))
	for _, t := range openTrades {
		localTrades = append(localTrades, reconciler.LocalTrade{
			ID: t.ID, Ticker: t.MarketTicker, Side: domain.Side(t.Side), Quantity: t.Quantity,
		})
	}

	rec := reconciler.NewReconciler(logging.For(log, logging.TagSystem))
	discrepancies := rec.Reconcile(ctx, exchangePositions, localTrades)

	if len(discrepancies) == 0 {
		fmt.Println("no discrepancies found")
		return nil
	}
	for _, d := range discrepancies {
		fmt.Printf("%s: exchange=%d local=%d trade_ids=%v\n", d.Ticker, d.ExchangeQty, d.LocalQty, d.LocalTradeIDs)
	}
	return nil
}
