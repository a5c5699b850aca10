package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/ensemble"
	"github.com/weatherdesk/tradecore/internal/orchestrator"
	"github.com/weatherdesk/tradecore/internal/queue"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

// Repository wraps gorm.DB with the domain-shaped queries the rest of
// the trading core needs; callers never see a *gorm.DB directly.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertTradeRow persists a newly executed trade as OPEN from its raw
// storage row.
func (r *Repository) InsertTradeRow(ctx context.Context, row TradeRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// InsertTrade builds a TradeRow from an executed signal and persists it
// as OPEN. Implements executor.TradeStore.
func (r *Repository) InsertTrade(ctx context.Context, id, kalshiOrderID string, signal scanner.TradeSignal, filledCount int, now time.Time) error {
	return r.InsertTradeRow(ctx, TradeRow{
		ID:                id,
		KalshiOrderID:     kalshiOrderID,
		City:              string(signal.City),
		TradeDate:         dayKey(now),
		MarketTicker:      signal.Ticker,
		BracketLabel:      signal.BracketLabel,
		Side:              string(signal.Side),
		PriceCents:        int64(signal.PriceCents),
		Quantity:          filledCount,
		ModelProbability:  signal.ModelProbability,
		MarketProbability: signal.MarketProbability,
		EVAtEntry:         signal.ExpectedValue,
		Confidence:        signal.Confidence,
		Status:            string(domain.StatusOpen),
		CreatedAt:         now,
	})
}

// OpenTrades returns every trade currently in OPEN status.
func (r *Repository) OpenTrades(ctx context.Context) ([]TradeRow, error) {
	var rows []TradeRow
	err := r.db.WithContext(ctx).Where("status = ?", string(domain.StatusOpen)).Find(&rows).Error
	return rows, err
}

// OpenExposureCents sums the cost basis of every OPEN trade.
func (r *Repository) OpenExposureCents(ctx context.Context) (domain.Cents, error) {
	rows, err := r.OpenTrades(ctx)
	if err != nil {
		return 0, err
	}
	var total domain.Cents
	for _, row := range rows {
		side := domain.Side(row.Side)
		cost := side.CostCents(domain.Cents(row.PriceCents)) * domain.Cents(row.Quantity)
		total += cost
	}
	return total, nil
}

// DailyPnLCents sums settled P&L for trades settled on tradingDay.
func (r *Repository) DailyPnLCents(ctx context.Context, tradingDay time.Time) (domain.Cents, error) {
	var rows []TradeRow
	err := r.db.WithContext(ctx).
		Where("settled_at >= ? AND settled_at < ?", tradingDay, tradingDay.Add(24*time.Hour)).
		Where("pnl_cents IS NOT NULL").
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	var total domain.Cents
	for _, row := range rows {
		if row.PnLCents != nil {
			total += domain.Cents(*row.PnLCents)
		}
	}
	return total, nil
}

// SettleTrade marks a trade WON or LOST with its realized P&L and fee.
func (r *Repository) SettleTrade(ctx context.Context, tradeID string, status domain.Status, pnlCents, feeCents domain.Cents, settledAt time.Time) error {
	return r.db.WithContext(ctx).Model(&TradeRow{}).Where("id = ?", tradeID).Updates(map[string]any{
		"status":     string(status),
		"pnl_cents":  centsPtr(pnlCents),
		"fee_cents":  centsPtr(feeCents),
		"settled_at": settledAt,
	}).Error
}

// InsertSettlement records the exchange/NWS-settled actual high
// temperature for a city/date.
func (r *Repository) InsertSettlement(ctx context.Context, row SettlementRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// seasonMonths maps each meteorological season to its three calendar
// months, the inverse of domain.SeasonForMonth.
var seasonMonths = map[domain.Season][]int{
	domain.SeasonWinter: {12, 1, 2},
	domain.SeasonSpring: {3, 4, 5},
	domain.SeasonSummer: {6, 7, 8},
	domain.SeasonFall:   {9, 10, 11},
}

// ForecastErrors returns historical (actual - forecast) residuals for
// a city/season, joining weather_forecasts to settlements on matching
// city and date. Implements ensemble.ErrorHistoryStore.
func (r *Repository) ForecastErrors(ctx context.Context, city domain.City, season domain.Season) ([]float64, error) {
	var rows []struct {
		ForecastHighF float64
		ActualHighF   float64
	}
	err := r.db.WithContext(ctx).
		Table("weather_forecasts").
		Select("weather_forecasts.forecast_high_f, settlements.actual_high_f").
		Joins("JOIN settlements ON settlements.city = weather_forecasts.city AND settlements.settlement_date = weather_forecasts.forecast_date").
		Where("weather_forecasts.city = ?", string(city)).
		Where("EXTRACT(MONTH FROM weather_forecasts.forecast_date) IN ?", seasonMonths[season]).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	errors := make([]float64, 0, len(rows))
	for _, row := range rows {
		errors = append(errors, row.ActualHighF-row.ForecastHighF)
	}
	return errors, nil
}

// UpsertDailyRiskState persists the in-memory daily risk state so it
// survives a process restart.
func (r *Repository) UpsertDailyRiskState(ctx context.Context, row DailyRiskStateRow) error {
	return r.db.WithContext(ctx).Save(&row).Error
}

// OpenTradesForSettlement returns every OPEN trade in the shape the
// orchestrator's settlement sweep needs. Implements
// orchestrator.SettlementStore.
func (r *Repository) OpenTradesForSettlement(ctx context.Context) ([]orchestrator.OpenTrade, error) {
	rows, err := r.OpenTrades(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]orchestrator.OpenTrade, 0, len(rows))
	for _, row := range rows {
		out = append(out, orchestrator.OpenTrade{
			ID:           row.ID,
			City:         domain.City(row.City),
			BracketLabel: row.BracketLabel,
			Side:         domain.Side(row.Side),
			PriceCents:   domain.Cents(row.PriceCents),
			Quantity:     row.Quantity,
			TradeDate:    row.TradeDate,
		})
	}
	return out, nil
}

// ActualHighF returns the settled actual high temperature for a
// city/date, if one has been recorded yet.
func (r *Repository) ActualHighF(ctx context.Context, city domain.City, date time.Time) (float64, bool, error) {
	var row SettlementRow
	err := r.db.WithContext(ctx).
		Where("city = ? AND settlement_date = ?", string(city), date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.ActualHighF, true, nil
}

// PendingTrades returns every queued trade awaiting approval or
// expiry, in the queue package's in-memory shape.
func (r *Repository) PendingTrades(ctx context.Context) ([]*queue.PendingTrade, error) {
	var rows []PendingTradeRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*queue.PendingTrade, 0, len(rows))
	for _, row := range rows {
		out = append(out, &queue.PendingTrade{
			ID:           row.ID,
			City:         domain.City(row.City),
			Ticker:       row.Ticker,
			BracketLabel: row.BracketLabel,
			Side:         domain.Side(row.Side),
			PriceCents:   domain.Cents(row.PriceCents),
			Quantity:     row.Quantity,
			Status:       domain.PendingStatus(row.Status),
			CreatedAt:    row.CreatedAt,
			ExpiresAt:    row.ExpiresAt,
			ActedAt:      row.ActedAt,
		})
	}
	return out, nil
}

// FetchForecasts returns today's per-source forecasts for a city,
// ingested by an external feed into weather_forecasts. Raw forecast
// production is out of scope here; this only reads what has already
// landed. Implements orchestrator.ForecastSource.
func (r *Repository) FetchForecasts(ctx context.Context, city domain.City) ([]ensemble.Forecast, error) {
	today := dayKey(time.Now())
	var rows []WeatherForecastRow
	err := r.db.WithContext(ctx).
		Where("city = ? AND forecast_date = ?", string(city), today).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ensemble.Forecast, 0, len(rows))
	for _, row := range rows {
		out = append(out, ensemble.Forecast{
			Source:   row.Source,
			TempF:    row.ForecastHighF,
			IssuedAt: row.IssuedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

func dayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UpdatePendingTrade persists a pending trade's current status, used
// after approval, rejection, or TTL expiry.
func (r *Repository) UpdatePendingTrade(ctx context.Context, trade *queue.PendingTrade) error {
	return r.db.WithContext(ctx).Model(&PendingTradeRow{}).Where("id = ?", trade.ID).Updates(map[string]any{
		"status":   string(trade.Status),
		"acted_at": trade.ActedAt,
	}).Error
}
