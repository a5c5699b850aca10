package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/weatherdesk/tradecore/internal/backtest"
	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
	"github.com/weatherdesk/tradecore/internal/logging"
)

// predictionFile is the on-disk shape of one day's bracket prediction
// for one city, the backtest's input fixture format.
type predictionFile struct {
	City          string    `json:"city"`
	Date          string    `json:"date"` // YYYY-MM-DD
	EnsembleMeanF float64   `json:"ensemble_mean_f"`
	EnsembleStdF  float64   `json:"ensemble_std_f"`
	Brackets      []bracket `json:"brackets"`
}

type bracket struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

func loadPredictions(path string) ([]backtest.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading predictions file: %w", err)
	}

	var raw []predictionFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing predictions file: %w", err)
	}

	out := make([]backtest.Prediction, 0, len(raw))
	for _, r := range raw {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", r.Date, err)
		}
		brackets := make([]ensemble.BracketProbability, 0, len(r.Brackets))
		for _, b := range r.Brackets {
			brackets = append(brackets, ensemble.BracketProbability{Label: b.Label, Probability: b.Probability})
		}
		out = append(out, backtest.Prediction{
			City:          domain.City(r.City),
			Date:          date,
			EnsembleMeanF: r.EnsembleMeanF,
			EnsembleStdF:  r.EnsembleStdF,
			Brackets:      brackets,
		})
	}
	return out, nil
}

func newBacktestCmd() *cobra.Command {
	var (
		predictionsPath string
		citiesFlag      string
		startFlag       string
		endFlag         string
		seed            int64
		bankrollCents   int64
		minEV           float64
		useKelly        bool
		kellyFraction   float64
		priceNoiseCents int
		jsonOut         bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical predictions through the live scanner/risk/settlement code",
		RunE: func(cmd *cobra.Command, args []string) error {
			predictions, err := loadPredictions(predictionsPath)
			if err != nil {
				return err
			}

			start, err := time.Parse("2006-01-02", startFlag)
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			end, err := time.Parse("2006-01-02", endFlag)
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}

			cfg := backtest.DefaultConfig()
			cfg.StartDate = start
			cfg.EndDate = end
			cfg.InitialBankrollCents = domain.Cents(bankrollCents)
			cfg.MinEVThreshold = minEV
			cfg.UseKelly = useKelly
			cfg.KellyFraction = kellyFraction
			cfg.PriceNoiseCents = priceNoiseCents
			if citiesFlag != "" {
				var cities []domain.City
				for _, c := range strings.Split(citiesFlag, ",") {
					cities = append(cities, domain.City(strings.ToUpper(strings.TrimSpace(c))))
				}
				cfg.Cities = cities
			}

			log := logging.For(logging.Init(false, os.Stderr), logging.TagBacktest)

			result, err := backtest.Run(cfg, predictions, nil, seed, log)
			if err != nil {
				return fmt.Errorf("backtest run failed: %w", err)
			}
			summary := backtest.Summarize(result)

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			fmt.Printf("trades=%d wins=%d losses=%d win_rate=%.1f%%\n",
				summary.TotalTrades, summary.Wins, summary.Losses, summary.WinRate*100)
			fmt.Printf("total_pnl_cents=%d roi=%.2f%% sharpe=%.2f max_drawdown=%.2f%%\n",
				summary.TotalPnLCents, summary.ROIPercent, summary.SharpeRatio, summary.MaxDrawdownPercent)
			for city, stats := range summary.PerCityStats {
				fmt.Printf("  %s: trades=%d win_rate=%.1f%% pnl_cents=%d\n",
					city, stats.TotalTrades, stats.WinRate*100, stats.TotalPnLCents)
			}
			if summary.KellyStats != nil {
				fmt.Printf("kelly: avg_quantity=%.2f max_quantity=%d pnl_vs_flat_cents=%d\n",
					summary.KellyStats.AvgQuantity, summary.KellyStats.MaxQuantity, summary.KellyStats.PnLVsFlatCents)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&predictionsPath, "predictions-file", "", "path to a JSON fixture of historical predictions (required)")
	cmd.Flags().StringVar(&citiesFlag, "cities", "", "comma-separated city codes, defaults to all four")
	cmd.Flags().StringVar(&startFlag, "start", "", "backtest start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endFlag, "end", "", "backtest end date, YYYY-MM-DD (required)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for the deterministic random source")
	cmd.Flags().Int64Var(&bankrollCents, "bankroll-cents", 100_000, "starting bankroll in cents")
	cmd.Flags().Float64Var(&minEV, "min-ev", 0.02, "minimum expected value threshold")
	cmd.Flags().BoolVar(&useKelly, "kelly", true, "size positions with fractional Kelly instead of a flat 1 contract")
	cmd.Flags().Float64Var(&kellyFraction, "kelly-fraction", 0.25, "Kelly fraction, e.g. 0.25 for quarter-Kelly")
	cmd.Flags().IntVar(&priceNoiseCents, "price-noise-cents", 5, "max synthetic market price noise in either direction")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full summary as JSON instead of a text digest")
	cmd.MarkFlagRequired("predictions-file")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}
