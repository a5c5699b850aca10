package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
	"github.com/weatherdesk/tradecore/internal/scanner"
)

var et = domain.ET

func TestCooldownNotActiveInitially(t *testing.T) {
	active, _ := IsCooldownActive(CooldownState{}, time.Now())
	assert.False(t, active)
}

func TestOnTradeLossStartsPerLossTimer(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, et)
	state := OnTradeLoss(CooldownState{}, now, CooldownSettings{PerLossCooldownMinutes: 30, ConsecutiveLossLimit: 5})
	active, reason := IsCooldownActive(state, now.Add(time.Minute))
	assert.True(t, active)
	assert.Contains(t, reason, "Per-loss cooldown")
	assert.Equal(t, 1, state.ConsecutiveLosses)
}

func TestOnTradeLossEscalatesToRestOfDay(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, et)
	settings := CooldownSettings{PerLossCooldownMinutes: 30, ConsecutiveLossLimit: 2}
	state := CooldownState{}
	state = OnTradeLoss(state, now, settings)
	state = OnTradeLoss(state, now, settings)
	assert.Equal(t, 2, state.ConsecutiveLosses)
	active, reason := IsCooldownActive(state, now.Add(time.Hour))
	assert.True(t, active)
	assert.Contains(t, reason, "rest of trading day")
}

func TestOnTradeWinDoesNotClearPerLossTimer(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, et)
	settings := CooldownSettings{PerLossCooldownMinutes: 30, ConsecutiveLossLimit: 5}
	state := OnTradeLoss(CooldownState{}, now, settings)
	cooldownBefore := state.CooldownUntil

	state = OnTradeWin(state)

	assert.Equal(t, 0, state.ConsecutiveLosses)
	assert.Equal(t, cooldownBefore, state.CooldownUntil, "win must not clear an active per-loss cooldown timer")

	active, _ := IsCooldownActive(state, now.Add(time.Minute))
	assert.True(t, active, "cooldown should still be active after a win resets only the loss streak")
}

func TestManagerCheckTradeOrderedChecks(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, et)
	settings := Settings{
		MaxTradeSizeCents:     1000,
		MaxDailyExposureCents: 5000,
		MaxDailyLossCents:     2000,
		MinEVThreshold:        0.02,
		Cooldown:              CooldownSettings{PerLossCooldownMinutes: 30, ConsecutiveLossLimit: 3},
	}
	mgr := NewManager(now, settings)

	signal := scanner.TradeSignal{
		Side: domain.SideYes, PriceCents: 50, Quantity: 1, ExpectedValue: 0.05,
	}

	ok, reason := mgr.CheckTrade(now, signal)
	assert.True(t, ok)
	assert.Equal(t, "All checks passed", reason)

	require.NoError(t, mgr.ReserveExposure(now, signal))
}

func TestManagerCheckTradeBlocksOnEV(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, et)
	settings := Settings{
		MaxTradeSizeCents:     1000,
		MaxDailyExposureCents: 5000,
		MaxDailyLossCents:     2000,
		MinEVThreshold:        0.10,
	}
	mgr := NewManager(now, settings)
	signal := scanner.TradeSignal{Side: domain.SideYes, PriceCents: 50, Quantity: 1, ExpectedValue: 0.01}

	ok, reason := mgr.CheckTrade(now, signal)
	assert.False(t, ok)
	assert.Contains(t, reason, "min_ev_threshold")
}

func TestManagerExposureReservationDeniedOnceExhausted(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, et)
	settings := Settings{
		MaxTradeSizeCents:     10000,
		MaxDailyExposureCents: 100,
		MaxDailyLossCents:     2000,
		MinEVThreshold:        0.0,
	}
	mgr := NewManager(now, settings)
	signal := scanner.TradeSignal{Side: domain.SideYes, PriceCents: 60, Quantity: 1, ExpectedValue: 0.5}

	require.NoError(t, mgr.ReserveExposure(now, signal))
	err := mgr.ReserveExposure(now, signal)
	assert.Error(t, err, "second reservation should be denied once exposure ceiling is exhausted")
}

func TestDailyStateResetsOnNewTradingDay(t *testing.T) {
	day1 := time.Date(2026, 7, 29, 23, 0, 0, 0, et)
	store := NewDailyStateStore(day1)
	store.CheckAndReserveExposure(day1, 50, 1000)

	day2 := time.Date(2026, 7, 30, 1, 0, 0, 0, et)
	snap := store.Snapshot(day2)
	assert.Equal(t, domain.Cents(0), snap.TotalExposureCents)
}
