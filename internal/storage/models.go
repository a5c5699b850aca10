// Package storage persists trades, settlements, and risk state via
// gorm against Postgres.
package storage

import (
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// TradeRow is the durable record of a single executed trade.
type TradeRow struct {
	ID                string `gorm:"primaryKey"`
	KalshiOrderID     string
	City              string
	TradeDate         time.Time
	MarketTicker      string
	BracketLabel      string
	Side              string
	PriceCents        int64
	Quantity          int
	ModelProbability  float64
	MarketProbability float64
	EVAtEntry         float64
	Confidence        string
	Status            string
	PnLCents          *int64
	FeeCents          *int64
	SettledAt         *time.Time
	CreatedAt         time.Time
}

func (TradeRow) TableName() string { return "trades" }

// SettlementRow is the durable record of a settled market's actual
// outcome.
type SettlementRow struct {
	ID             string `gorm:"primaryKey"`
	City           string
	SettlementDate time.Time
	ActualHighF    float64
	CreatedAt      time.Time
}

func (SettlementRow) TableName() string { return "settlements" }

// WeatherForecastRow is one model source's forecast for a city/date,
// used both live and for historical error-distribution estimation.
type WeatherForecastRow struct {
	ID             string `gorm:"primaryKey"`
	City           string
	ForecastDate   time.Time
	Source         string
	ForecastHighF  float64
	IssuedAt       time.Time
}

func (WeatherForecastRow) TableName() string { return "weather_forecasts" }

// PredictionRow persists the ensemble's bracket-probability output for
// a city/date, used later for calibration scoring.
type PredictionRow struct {
	ID             string `gorm:"primaryKey"`
	City           string
	PredictionDate time.Time
	BracketsJSON   string // []ensemble.BracketProbability, json-encoded
	CreatedAt      time.Time
}

func (PredictionRow) TableName() string { return "predictions" }

// DailyRiskStateRow persists the per-day exposure/P&L bookkeeping so
// risk state survives a process restart.
type DailyRiskStateRow struct {
	TradingDay         time.Time `gorm:"primaryKey"`
	TotalExposureCents int64
	TradesCount        int
	DailyPnLCents      int64
	CooldownUntil      *time.Time
	ConsecutiveLosses  int
}

func (DailyRiskStateRow) TableName() string { return "daily_risk_state" }

// PendingTradeRow persists a queued trade awaiting human approval.
type PendingTradeRow struct {
	ID           string `gorm:"primaryKey"`
	City         string
	Ticker       string
	BracketLabel string
	Side         string
	PriceCents   int64
	Quantity     int
	Status       string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ActedAt      *time.Time
}

func (PendingTradeRow) TableName() string { return "pending_trades" }

func centsPtr(c domain.Cents) *int64 {
	v := int64(c)
	return &v
}
