// Package risk implements the cooldown state machine and the ordered
// risk checks that gate every candidate trade before execution.
package risk

import (
	"time"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// CooldownState is the per-account cooldown timer plus the
// consecutive-loss counter used to trigger a rest-of-day pause.
type CooldownState struct {
	CooldownUntil     time.Time
	ConsecutiveLosses int
}

// CooldownSettings configures the cooldown state machine.
type CooldownSettings struct {
	PerLossCooldownMinutes int
	ConsecutiveLossLimit   int
}

// IsCooldownActive reports whether now falls before the state's
// cooldown expiry, and if so, whether the cooldown is a rest-of-day
// pause (within 60 seconds of 23:59:59 ET) or an ordinary per-loss
// timer, for the reason string surfaced to the caller.
func IsCooldownActive(state CooldownState, now time.Time) (bool, string) {
	if now.Before(state.CooldownUntil) {
		endOfDay := domain.EndOfTradingDay(now)
		if absDuration(state.CooldownUntil.Sub(endOfDay)) <= 60*time.Second {
			return true, "Consecutive loss limit hit -- paused for rest of trading day"
		}
		remaining := state.CooldownUntil.Sub(now)
		return true, formatRemaining(remaining)
	}
	return false, ""
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func formatRemaining(d time.Duration) string {
	minutes := d.Minutes()
	return "Per-loss cooldown: " + trimFloat(minutes) + " min remaining"
}

func trimFloat(f float64) string {
	// Round to nearest whole minute, matching the original's "{:.0f}" format.
	rounded := int64(f + 0.5)
	if f < 0 {
		rounded = int64(f - 0.5)
	}
	return itoa(rounded)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// OnTradeLoss applies a loss to the cooldown state: it starts (or
// restarts) the per-loss timer if configured, increments the
// consecutive-loss counter, and escalates to a rest-of-day cooldown if
// the counter reaches the configured limit.
func OnTradeLoss(state CooldownState, now time.Time, settings CooldownSettings) CooldownState {
	if settings.PerLossCooldownMinutes > 0 {
		state.CooldownUntil = now.Add(time.Duration(settings.PerLossCooldownMinutes) * time.Minute)
	}
	state.ConsecutiveLosses++
	if settings.ConsecutiveLossLimit > 0 && state.ConsecutiveLosses >= settings.ConsecutiveLossLimit {
		state.CooldownUntil = domain.EndOfTradingDay(now)
	}
	return state
}

// OnTradeWin resets the consecutive-loss counter only. The per-loss
// cooldown timer, if one is currently running, is NOT cleared here: it
// expires naturally on its own schedule. A win ends the consecutive-
// loss streak but does not forgive a cooldown already in progress.
func OnTradeWin(state CooldownState) CooldownState {
	state.ConsecutiveLosses = 0
	return state
}
