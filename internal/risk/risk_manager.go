package risk

import (
	"fmt"
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

// Settings bundles the risk manager's configured limits.
type Settings struct {
	MaxTradeSizeCents    domain.Cents
	MaxDailyExposureCents domain.Cents
	MaxDailyLossCents    domain.Cents
	MinEVThreshold       float64
	Cooldown             CooldownSettings
}

// Manager runs the ordered pre-trade checks and owns the exposure
// reservation lock for the current trading day.
type Manager struct {
	store    *DailyStateStore
	settings Settings
}

// NewManager constructs a risk manager starting a fresh daily state
// for now.
func NewManager(now time.Time, settings Settings) *Manager {
	return &Manager{store: NewDailyStateStore(now), settings: settings}
}

// CheckTrade runs the five ordered checks against a candidate signal:
// cooldown, trade size, daily exposure, daily loss, EV threshold. The
// first failing check short-circuits with its reason; passing all five
// returns (true, "All checks passed").
//
// This predicate alone does not reserve exposure — callers must follow
// a true result with ReserveExposure (the store's atomic
// CheckAndReserveExposure) before placing the order,
// so two concurrently-evaluated signals cannot both slip past the same
// exposure ceiling.
func (m *Manager) CheckTrade(now time.Time, signal scanner.TradeSignal) (bool, string) {
	cooldown := m.store.Cooldown(now)
	if active, reason := IsCooldownActive(cooldown, now); active {
		return false, reason
	}

	costCents := signal.Side.CostCents(signal.PriceCents) * domain.Cents(maxInt(signal.Quantity, 1))
	if costCents > m.settings.MaxTradeSizeCents {
		return false, fmt.Sprintf("trade size %d cents exceeds max_trade_size_cents %d", costCents, m.settings.MaxTradeSizeCents)
	}

	daily := m.store.Snapshot(now)
	if daily.TotalExposureCents+costCents > m.settings.MaxDailyExposureCents {
		return false, fmt.Sprintf("open exposure %d + %d cents would exceed max_daily_exposure_cents %d", daily.TotalExposureCents, costCents, m.settings.MaxDailyExposureCents)
	}

	if daily.DailyPnLCents <= -m.settings.MaxDailyLossCents {
		return false, fmt.Sprintf("daily loss %d cents has reached max_daily_loss_cents %d", -daily.DailyPnLCents, m.settings.MaxDailyLossCents)
	}

	if signal.ExpectedValue < m.settings.MinEVThreshold {
		return false, fmt.Sprintf("expected value %.4f below min_ev_threshold %.4f", signal.ExpectedValue, m.settings.MinEVThreshold)
	}

	return true, "All checks passed"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ReserveExposure reserves the cost of a signal against the daily
// exposure ceiling, returning a RiskBlock error if it would be
// exceeded.
func (m *Manager) ReserveExposure(now time.Time, signal scanner.TradeSignal) error {
	costCents := signal.Side.CostCents(signal.PriceCents) * domain.Cents(maxInt(signal.Quantity, 1))
	if !m.store.CheckAndReserveExposure(now, costCents, m.settings.MaxDailyExposureCents) {
		return domain.NewRiskBlock("exposure reservation denied", map[string]any{
			"cost_cents": costCents, "max_daily_exposure_cents": m.settings.MaxDailyExposureCents,
		})
	}
	return nil
}

// RecordSettlement folds a settlement's outcome into daily P&L and the
// cooldown state machine.
func (m *Manager) RecordSettlement(now time.Time, pnlCents domain.Cents, won bool) {
	m.store.RecordSettlement(now, pnlCents, won, m.settings.Cooldown)
}

// Snapshot exposes the current daily risk state, e.g. for dashboards.
func (m *Manager) Snapshot(now time.Time) DailyState {
	return m.store.Snapshot(now)
}

// MaxTradeSizeCents exposes the configured single-trade cost ceiling,
// needed by callers sizing a position with Kelly before CheckTrade runs.
func (m *Manager) MaxTradeSizeCents() domain.Cents {
	return m.settings.MaxTradeSizeCents
}
