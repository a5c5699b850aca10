package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/weatherdesk/tradecore/internal/config"
	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
	"github.com/weatherdesk/tradecore/internal/executor"
	"github.com/weatherdesk/tradecore/internal/feed"
	"github.com/weatherdesk/tradecore/internal/kalshi"
	"github.com/weatherdesk/tradecore/internal/logging"
	"github.com/weatherdesk/tradecore/internal/metrics"
	"github.com/weatherdesk/tradecore/internal/orchestrator"
	"github.com/weatherdesk/tradecore/internal/risk"
	"github.com/weatherdesk/tradecore/internal/scanner"
	"github.com/weatherdesk/tradecore/internal/storage"
)

func newRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live trading loop: periodic scan, risk review, execution, and settlement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "paper trade only (no real orders), overrides config")
	return cmd
}

// bankrollAdapter turns the exchange balance endpoint into the narrow
// orchestrator.BankrollSource the cycle depends on.
type bankrollAdapter struct {
	client *kalshi.Client
}

func (b bankrollAdapter) BankrollCents(ctx context.Context) (domain.Cents, error) {
	bal, err := b.client.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	return domain.Cents(bal.Balance), nil
}

func runLive(dryRunFlag bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dryRunFlag {
		cfg.DryRun = true
	}

	log := logging.Init(cfg.Debug, nil)
	sysLog := logging.For(log, logging.TagSystem)
	logging.WithFields(sysLog.Info(), cfg.LogFields()).Msg("tradecore starting")

	client, err := kalshi.NewClient(cfg, logging.For(log, logging.TagAuth))
	if err != nil {
		return fmt.Errorf("kalshi client: %w", err)
	}
	wsClient, err := kalshi.NewWSClient(cfg, logging.For(log, logging.TagMarket))
	if err != nil {
		return fmt.Errorf("kalshi ws client: %w", err)
	}

	db, err := storage.Open(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	repo := storage.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		sysLog.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	go func() {
		if err := wsClient.Run(ctx); err != nil && ctx.Err() == nil {
			sysLog.Error().Err(err).Msg("kalshi ws error")
		}
	}()

	bal, err := client.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("auth check failed, cannot reach kalshi api: %w", err)
	}
	sysLog.Info().Str("balance", fmt.Sprintf("$%.2f", float64(bal.Balance)/100.0)).Msg("authenticated")

	reg := prometheus.NewRegistry()
	sink := metrics.Sink(metrics.NewPrometheusSink(reg))

	cache := feed.NewCache(cfg.RedisAddr, cfg.RedisDB, time.Duration(cfg.KalshiWSCacheTTLSeconds)*time.Second)
	defer cache.Close()
	quality := feed.NewQualityTracker(3.0)
	consumer := feed.NewConsumer(
		wsClient, wsClient, client, cache, quality, sink,
		logging.For(log, logging.TagFeed),
		2*time.Second, time.Duration(cfg.KalshiWSRefreshMinutes)*time.Minute,
	)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			sysLog.Error().Err(err).Msg("feed consumer stopped")
		}
	}()

	marketSource := feed.NewBracketMarketSource(client, cache)

	riskMgr := risk.NewManager(time.Now(), risk.Settings{
		MaxTradeSizeCents:     domain.Cents(cfg.MaxTradeSizeCents),
		MaxDailyExposureCents: domain.Cents(cfg.MaxDailyExposureCents),
		MaxDailyLossCents:     domain.Cents(cfg.MaxDailyLossCents),
		MinEVThreshold:        cfg.MinEVThreshold,
		Cooldown: risk.CooldownSettings{
			PerLossCooldownMinutes: cfg.CooldownPerLossMinutes,
			ConsecutiveLossLimit:   cfg.ConsecutiveLossLimit,
		},
	})

	// The stored open exposure is only logged; the risk manager's daily
	// exposure starts at zero and does not include it.
	if openExposure, err := repo.OpenExposureCents(ctx); err == nil {
		sysLog.Info().Int64("open_exposure_cents", int64(openExposure)).Msg("open exposure in storage")
	}

	exec := executor.NewExecutor(client, repo, cfg.DryRun, logging.For(log, logging.TagOrder))

	cycle := orchestrator.NewCycle(
		repo, marketSource, bankrollAdapter{client: client}, repo, riskMgr, exec, sink,
		orchestrator.CycleSettings{
			MinEVThreshold: cfg.MinEVThreshold,
			Kelly: scanner.KellySettings{
				UseKellySizing:         cfg.UseKellySizing,
				KellyFraction:          cfg.KellyFraction,
				MaxBankrollPctPerTrade: cfg.MaxBankrollPctPerTrade,
				MaxContractsPerTrade:   cfg.MaxContractsPerTrade,
			},
			ModelWeights: ensemble.DefaultModelWeights,
		},
		log,
	)

	settlementSweep := orchestrator.NewSettlementSweep(repo, riskMgr, sink, log)
	pendingSweep := orchestrator.NewPendingTradeSweep(repo, log)

	scheduler := orchestrator.NewScheduler(cycle, settlementSweep, pendingSweep, log)
	cycleSchedule := cfg.CronSchedule
	if cycleSchedule == "" {
		cycleSchedule = orchestrator.CycleSchedule(cfg.CycleIntervalSeconds)
	}
	if err := scheduler.Start(ctx, cycleSchedule); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	<-ctx.Done()
	scheduler.Stop()
	sysLog.Info().Msg("tradecore stopped")
	return nil
}
