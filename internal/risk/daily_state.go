package risk

import (
	"sync"
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// DailyState tracks exposure and cooldown bookkeeping for a single
// ET trading day, reset at midnight ET.
type DailyState struct {
	TradingDay          time.Time
	TotalExposureCents  domain.Cents
	TradesCount         int
	DailyPnLCents       domain.Cents
	Cooldown            CooldownState
}

// DailyStateStore holds the single current day's risk state behind a
// mutex that stands in for the original system's row-level
// SELECT ... FOR UPDATE lock: every exposure check-and-reserve happens
// under this lock so two concurrent signals cannot both pass the same
// exposure ceiling.
type DailyStateStore struct {
	mu    sync.Mutex
	state DailyState
}

// NewDailyStateStore starts a fresh store for the trading day
// containing now.
func NewDailyStateStore(now time.Time) *DailyStateStore {
	return &DailyStateStore{state: DailyState{TradingDay: domain.TradingDay(now)}}
}

// handleDailyReset rolls the state over to a new trading day if now has
// crossed into one, resetting exposure/trade counters but preserving
// the cooldown state (a cooldown can span into the next ET day if it
// was set late, though in practice rest-of-day cooldowns always expire
// at the same day's 23:59:59).
func (s *DailyStateStore) handleDailyReset(now time.Time) {
	if domain.IsNewTradingDay(s.state.TradingDay, now) {
		s.state = DailyState{TradingDay: domain.TradingDay(now), Cooldown: s.state.Cooldown}
	}
}

// Snapshot returns a copy of the current daily state after rolling any
// pending day reset.
func (s *DailyStateStore) Snapshot(now time.Time) DailyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleDailyReset(now)
	return s.state
}

// CheckAndReserveExposure atomically checks whether amountCents fits
// under the configured daily exposure ceiling and, if so, reserves it
// by incrementing total exposure and the trade counter. Returns false
// without reserving if the ceiling would be exceeded.
func (s *DailyStateStore) CheckAndReserveExposure(now time.Time, amountCents domain.Cents, maxDailyExposureCents domain.Cents) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleDailyReset(now)

	if s.state.TotalExposureCents+amountCents > maxDailyExposureCents {
		return false
	}
	s.state.TotalExposureCents += amountCents
	s.state.TradesCount++
	return true
}

// RecordSettlement folds a settled trade's P&L into the daily state.
func (s *DailyStateStore) RecordSettlement(now time.Time, pnlCents domain.Cents, won bool, cooldownSettings CooldownSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleDailyReset(now)

	s.state.DailyPnLCents += pnlCents
	if won {
		s.state.Cooldown = OnTradeWin(s.state.Cooldown)
	} else {
		s.state.Cooldown = OnTradeLoss(s.state.Cooldown, now, cooldownSettings)
	}
}

// Cooldown returns the current cooldown state after rolling any
// pending day reset.
func (s *DailyStateStore) Cooldown(now time.Time) CooldownState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleDailyReset(now)
	return s.state.Cooldown
}
